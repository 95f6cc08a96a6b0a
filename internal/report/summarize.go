// Package report aggregates a finished run's result stream into per-model,
// per-track and per-modality statistics.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"circuitbench/internal/run"
)

// Stats is one aggregation bucket. Means are over the records that carried
// the corresponding value; a run with no judge enabled reports zero judged.
type Stats struct {
	Count       int            `json:"count"`
	Scored      int            `json:"scored"`
	Judged      int            `json:"judged"`
	MeanRaw     float64        `json:"mean_raw"`
	MeanJudge   float64        `json:"mean_judge"`
	MeanBlended float64        `json:"mean_blended"`
	PassRate    float64        `json:"pass_rate"`
	Failures    map[string]int `json:"failures,omitempty"`
}

// Summary is the full aggregation of one run.
type Summary struct {
	Total      int              `json:"total"`
	ByModel    map[string]Stats `json:"by_model"`
	ByTrack    map[string]Stats `json:"by_track"`
	ByModality map[string]Stats `json:"by_modality"`
}

type acc struct {
	count    int
	rawSum   float64
	scored   int
	judgeSum float64
	judged   int
	blendSum float64
	blended  int
	passed   int
	failures map[string]int
}

func (a *acc) add(r run.ResultRecord) {
	a.count++
	if r.Scores != nil {
		a.scored++
		a.rawSum += r.Scores.Raw
		if r.Scores.Pass {
			a.passed++
		}
	}
	if r.Judge != nil {
		a.judged++
		a.judgeSum += r.Judge.Overall
	}
	if r.Blended != nil {
		a.blended++
		a.blendSum += *r.Blended
	}
	if r.ErrorClass != "" {
		if a.failures == nil {
			a.failures = make(map[string]int)
		}
		a.failures[r.ErrorClass]++
	}
}

func (a *acc) stats() Stats {
	s := Stats{Count: a.count, Scored: a.scored, Judged: a.judged, Failures: a.failures}
	if a.scored > 0 {
		s.MeanRaw = a.rawSum / float64(a.scored)
		s.PassRate = float64(a.passed) / float64(a.scored)
	}
	if a.judged > 0 {
		s.MeanJudge = a.judgeSum / float64(a.judged)
	}
	if a.blended > 0 {
		s.MeanBlended = a.blendSum / float64(a.blended)
	}
	return s
}

// Summarize reads runDir/results.jsonl and aggregates it.
func Summarize(runDir string) (*Summary, error) {
	path := filepath.Join(runDir, "results.jsonl")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open results: %w", err)
	}
	defer f.Close()

	byModel := map[string]*acc{}
	byTrack := map[string]*acc{}
	byModality := map[string]*acc{}
	get := func(m map[string]*acc, key string) *acc {
		if key == "" {
			key = "?"
		}
		a, ok := m[key]
		if !ok {
			a = &acc{}
			m[key] = a
		}
		return a
	}

	total := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r run.ResultRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("report: parse %s:%d: %w", path, line, err)
		}
		total++
		get(byModel, r.Model).add(r)
		get(byTrack, r.Track).add(r)
		get(byModality, r.Modality).add(r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("report: scan results: %w", err)
	}

	finalize := func(m map[string]*acc) map[string]Stats {
		out := make(map[string]Stats, len(m))
		for k, a := range m {
			out[k] = a.stats()
		}
		return out
	}
	return &Summary{
		Total:      total,
		ByModel:    finalize(byModel),
		ByTrack:    finalize(byTrack),
		ByModality: finalize(byModality),
	}, nil
}

// WriteJSON stores the summary as summary.json next to the results.
func (s *Summary) WriteJSON(runDir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "summary.json"), append(data, '\n'), 0o644)
}

// Render formats the summary as a plain text block for the CLI.
func (s *Summary) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n  Total: %d\n", s.Total)
	section := func(title string, m map[string]Stats) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&b, "  %s:\n", title)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			st := m[k]
			fmt.Fprintf(&b, "    %-24s n=%-4d raw=%.2f judge=%.2f blended=%.2f pass=%.0f%%",
				k, st.Count, st.MeanRaw, st.MeanJudge, st.MeanBlended, 100*st.PassRate)
			if len(st.Failures) > 0 {
				fails := make([]string, 0, len(st.Failures))
				for class, n := range st.Failures {
					fails = append(fails, fmt.Sprintf("%s=%d", class, n))
				}
				sort.Strings(fails)
				fmt.Fprintf(&b, " failures[%s]", strings.Join(fails, " "))
			}
			b.WriteString("\n")
		}
	}
	section("By model", s.ByModel)
	section("By track", s.ByTrack)
	section("By modality", s.ByModality)
	return b.String()
}
