package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/synthetic"
	"github.com/opensource-finance/harrier/internal/underwriting"
)

func (o *options) validate() error {
	switch {
	case o.count < 1:
		return errors.New("--count must be at least 1")
	case o.batch < 1:
		return errors.New("--batch must be at least 1")
	case o.workers < 1:
		return errors.New("--workers must be at least 1")
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	o.url = strings.TrimRight(o.url, "/")
	return nil
}

func newClaimsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "claims",
		Short: "Generate and score synthetic claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := synthetic.Claims(rand.New(rand.NewSource(opts.seed)), opts.count, time.Now())
			t := newTally(domain.DefaultFraudTiers())

			start := time.Now()
			var err error
			if opts.local {
				err = scoreClaimsLocal(cmd.Context(), claims, t)
			} else {
				err = postBatches(cmd.Context(), opts, "/fraud/batch", claims, func(r *domain.FraudBulkResult) {
					t.add(r.TotalCount, r.RejectedCount, r.Summary.TierCounts())
				})
			}
			if err != nil {
				return err
			}
			t.report(cmd.OutOrStdout(), "claims", opts, time.Since(start))
			return nil
		},
	}
}

func newApplicationsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "applications",
		Short: "Generate and score synthetic applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apps := synthetic.Applications(rand.New(rand.NewSource(opts.seed)), opts.count)
			t := newTally(domain.DefaultUnderwritingTiers())

			start := time.Now()
			var err error
			if opts.local {
				err = scoreApplicationsLocal(cmd.Context(), apps, t)
			} else {
				err = postBatches(cmd.Context(), opts, "/underwriting/batch", apps, func(r *domain.UnderwritingBulkResult) {
					t.add(r.TotalCount, r.RejectedCount, r.Summary.TierCounts())
				})
			}
			if err != nil {
				return err
			}
			t.report(cmd.OutOrStdout(), "applications", opts, time.Since(start))
			return nil
		},
	}
}

func scoreClaimsLocal(ctx context.Context, claims []domain.ClaimInput, t *tally) error {
	s, err := fraud.NewScorer(domain.DefaultFraudTiers())
	if err != nil {
		return err
	}
	res, err := s.ScoreAll(ctx, claims)
	if err != nil {
		return err
	}
	t.add(res.TotalCount, res.RejectedCount, res.Summary.TierCounts())
	return nil
}

func scoreApplicationsLocal(ctx context.Context, apps []domain.ApplicationInput, t *tally) error {
	s, err := underwriting.NewScorer(domain.DefaultUnderwritingTiers())
	if err != nil {
		return err
	}
	res, err := s.ScoreAll(ctx, apps)
	if err != nil {
		return err
	}
	t.add(res.TotalCount, res.RejectedCount, res.Summary.TierCounts())
	return nil
}

// postBatches splits records into batch requests and sends them with at most
// opts.workers in flight. merge is called once per response.
func postBatches[In, Out any](ctx context.Context, opts *options, path string, records []In, merge func(*Out)) error {
	client := &http.Client{Timeout: opts.timeout}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for start := 0; start < len(records); start += opts.batch {
		chunk := records[start:min(start+opts.batch, len(records))]
		g.Go(func() error {
			var out Out
			if err := postJSON(ctx, client, opts, path, map[string]any{"records": chunk}, &out); err != nil {
				return err
			}
			mu.Lock()
			merge(&out)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func postJSON(ctx context.Context, client *http.Client, opts *options, path string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.url+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", opts.tenant)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// tally accumulates tier counts across batches.
type tally struct {
	order    []string
	tiers    map[string]int
	scored   int
	rejected int
}

func newTally(bands []domain.TierBand) *tally {
	sorted := append([]domain.TierBand(nil), bands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower < sorted[j].Lower })

	t := &tally{tiers: map[string]int{}}
	for _, b := range sorted {
		t.order = append(t.order, b.Tier)
	}
	return t
}

func (t *tally) add(scored, rejected int, counts map[string]int) {
	t.scored += scored
	t.rejected += rejected
	for tier, n := range counts {
		t.tiers[tier] += n
	}
}

func (t *tally) report(w io.Writer, what string, opts *options, elapsed time.Duration) {
	mode := "http " + opts.url
	if opts.local {
		mode = "local"
	}

	fmt.Fprintf(w, "\nLOADGEN RESULTS (%s)\n", what)
	fmt.Fprintf(w, "   Mode:      %s\n", mode)
	fmt.Fprintf(w, "   Seed:      %d\n", opts.seed)
	fmt.Fprintf(w, "   Scored:    %d\n", t.scored)
	fmt.Fprintf(w, "   Rejected:  %d\n", t.rejected)

	fmt.Fprintf(w, "\n   Tier distribution:\n")
	for _, tier := range t.order {
		n := t.tiers[tier]
		pct := 0.0
		if t.scored > 0 {
			pct = 100 * float64(n) / float64(t.scored)
		}
		fmt.Fprintf(w, "     %-12s %8d  (%5.1f%%)\n", tier, n, pct)
	}

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(t.scored) / secs
	}
	fmt.Fprintf(w, "\n   Elapsed:   %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "   Throughput: %.0f records/sec\n", rate)
}
