// Package process supervises a fixed set of long-running subprocesses.
//
// A Supervisor launches every Spec it is given, attaches one drainer goroutine
// to each output stream and then polls on a fixed interval:
//   - buffered output is drained (and logged when verbose)
//   - a process with no output for more than MaxEmptyPolls ticks is stalled
//   - a process that exited is failed
//   - archive cleanup runs every other chunk duration
//
// The first stalled or failed process stops the whole session. Every process
// group is killed and the supervisor never restarts anything; that is left to
// the service manager.
//
// Example:
//
//	sup, err := process.NewSupervisor(specs, &process.Options{
//	    PollInterval: time.Second,
//	    Verbose:      true,
//	    LogParser:    ffmpeg.ParseLogLevel,
//	    OnStateChange: func(old, new process.State) {
//	        log.Printf("session %s -> %s", old, new)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	report, err := sup.Run(ctx)
package process
