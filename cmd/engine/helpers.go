package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"jobbot-engine/internal/run"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, sum run.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tSTATE\tAPPLIED\tATTEMPTED\tSKIPPED\tERROR")
	for _, c := range sum.Candidates {
		errText := ""
		if c.Err != nil {
			errText = c.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", c.Email, c.State, c.Applied, c.Attempted, c.Skipped, errText)
	}
	_ = tw.Flush()

	took := ""
	if !sum.Started.IsZero() && !sum.Finished.IsZero() {
		took = " in " + sum.Finished.Sub(sum.Started).Round(time.Second).String()
	}
	fmt.Fprintf(w, "run %s: %d applications across %d candidates%s\n", sum.RunID, sum.Applied(), len(sum.Candidates), took)
	if sum.Err != nil {
		fmt.Fprintf(w, "run ended early: %v\n", sum.Err)
	}
}

// readSecret takes the first line of r, trimmed of the line ending only.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
