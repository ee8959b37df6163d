package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/mixin/journal"
	"github.com/chazu/mixin/vm/wire"
)

// runJournal lists recorded sessions, or prints the events of the session
// named in args.
func runJournal(opts *options, args []string) error {
	if opts.journal == "" {
		return errors.New("no journal configured; pass -journal or set [journal] path")
	}
	if len(args) > 1 {
		return fmt.Errorf("journal takes at most one session ID, got %d", len(args))
	}

	j, err := journal.OpenReadOnly(opts.journal)
	if err != nil {
		return err
	}
	defer j.Close()

	if len(args) == 0 {
		sessions, err := j.Sessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Fprintf(opts.stdout, "%s  %s  %d events\n",
				s.ID, s.Started.Format(time.RFC3339), s.Events)
		}
		return nil
	}

	events, err := j.Events(args[0])
	if err != nil {
		return fmt.Errorf("session %s: %w", args[0], err)
	}
	if opts.format == "cbor" {
		ew := wire.NewEventWriter(opts.stdout)
		for _, ev := range events {
			ew.Trace(ev)
		}
		return ew.Err()
	}
	for _, ev := range events {
		fmt.Fprintf(opts.stdout, "%s  object=%d refs=%d weak=%d",
			ev.Kind, ev.Object, ev.Refs, ev.Weak)
		if ev.Class != "" {
			fmt.Fprintf(opts.stdout, " class=%s", ev.Class)
		}
		if ev.Selector != "" {
			fmt.Fprintf(opts.stdout, " selector=%s", ev.Selector)
		}
		if ev.Method != "" {
			fmt.Fprintf(opts.stdout, " method=%s", ev.Method)
		}
		fmt.Fprintln(opts.stdout)
	}
	return nil
}
