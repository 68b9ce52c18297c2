package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/logging"
	"github.com/voguh/unichat-sub000/internal/session"
)

const maxRecordBytes = 4 << 20

type replayOptions struct {
	summary  bool
	logLevel string
	buffer   int
}

func newEventsCommand() *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "events <file>",
		Short: "Print the canonical events of a capture file as JSON lines",
		Long: "Reads one capture record per line ({\"source\", \"platform\", \"channel\", \"data\"}),\n" +
			"feeds it through a fresh session and prints every resulting event.\n" +
			"Use - to read from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer closeIn()
			return replay(in, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print a table of event counts instead of the events")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for ingestion diagnostics (written to stderr)")
	cmd.Flags().IntVar(&opts.buffer, "buffer", 65536, "Event buffer size")
	return cmd
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open capture: %w", err)
	}
	return f, func() { f.Close() }, nil
}

type countKey struct {
	kind     event.Kind
	platform event.Platform
}

type replayResult struct {
	counts    map[countKey]int
	badLines  int
	ingestErr int
	stats     session.Stats
}

func replay(in io.Reader, out io.Writer, opts replayOptions) error {
	logger, err := logging.New(opts.logLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Emote providers stay unset; a replay never touches the network.
	sess := session.New(session.WithLogger(logger))
	sub, err := sess.Subscribe(opts.buffer)
	if err != nil {
		return err
	}

	res := replayResult{counts: make(map[countKey]int)}
	var writeErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := bufio.NewWriter(out)
		defer w.Flush()
		for e := range sub.C() {
			res.counts[countKey{kind: e.Kind(), platform: e.Meta().Platform}]++
			if opts.summary || writeErr != nil {
				continue
			}
			b, err := event.Marshal(e)
			if err != nil {
				writeErr = err
				continue
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				writeErr = fmt.Errorf("write event: %w", err)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec session.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			res.badLines++
			logger.Warnf("Skipping line %d: %v", lineNo, err)
			continue
		}
		if err := sess.Ingest(rec); err != nil {
			res.ingestErr++
		}
	}
	scanErr := scanner.Err()

	sess.Flush()
	res.stats = sess.Stats()
	sess.Close()
	wg.Wait()

	if scanErr != nil {
		return fmt.Errorf("read capture: %w", scanErr)
	}
	if writeErr != nil {
		return writeErr
	}
	if opts.summary {
		fmt.Fprintln(out, renderSummary(res))
	}
	return nil
}

func renderSummary(res replayResult) string {
	keys := make([]countKey, 0, len(res.counts))
	for k := range res.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].platform < keys[j].platform
	})

	rows := make([][]string, 0, len(keys)+6)
	for _, k := range keys {
		rows = append(rows, []string{string(k.kind), string(k.platform), strconv.Itoa(res.counts[k])})
	}
	rows = append(rows,
		[]string{"records ingested", "", strconv.FormatUint(res.stats.Ingested, 10)},
		[]string{"parse failures", "", strconv.FormatUint(res.stats.ParseFailures, 10)},
		[]string{"unknown input", "", strconv.FormatUint(res.stats.Unknown, 10)},
		[]string{"invalid events", "", strconv.FormatUint(res.stats.Invalid, 10)},
		[]string{"malformed lines", "", strconv.Itoa(res.badLines)},
		[]string{"events dropped", "", strconv.FormatUint(res.stats.Sink.Dropped, 10)},
	)
	return renderTable([]string{"Event", "Platform", "Count"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}
