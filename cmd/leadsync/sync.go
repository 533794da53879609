package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/hazyhaar/leadsync/browser"
	"github.com/hazyhaar/leadsync/extract"
	"github.com/hazyhaar/leadsync/gateway"
	"github.com/hazyhaar/leadsync/handoff"
	"github.com/hazyhaar/leadsync/netwatch"
	"github.com/hazyhaar/leadsync/orchestrator"
	"github.com/hazyhaar/leadsync/pagetype"
)

var (
	syncCampaign    int64
	syncPlatform    string
	syncOffering    string
	syncIntelligent bool
	syncMaxLeads    int
	syncSubreddits  []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run lead syncs",
}

var syncStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Prepare a sync, open the platform page and run it there",
	RunE:  runSyncStart,
}

var syncResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Run the pending handed-off sync in a new browser page",
	RunE:  runSyncResume,
}

func progressPrinter(w io.Writer) orchestrator.Observer {
	return func(p orchestrator.Progress) {
		line := fmt.Sprintf("[%s] %s", p.Status, p.Message)
		if p.TotalKeywords > 0 && p.CurrentKeyword != "" {
			line += fmt.Sprintf(" (%d/%d)", p.CurrentKeywordIndex+1, p.TotalKeywords)
		}
		if p.LeadsFound > 0 {
			line += fmt.Sprintf(" found=%d submitted=%d", p.LeadsFound, p.LeadsSubmitted)
		}
		if p.Error != "" {
			line += " error=" + p.Error
		}
		fmt.Fprintln(w, line)
	}
}

func extractors(m *browser.Manager, tab *browser.Tab, gw *gateway.Gateway) map[pagetype.Platform]orchestrator.ExtractorFactory {
	return extract.Factories(extract.Deps{
		Source:    m.TabSource(tab),
		Submitter: gw,
		Limiter:   rate.NewLimiter(rate.Every(cfg.Sync.SearchInterval), 1),
		Logger:    logger,
	})
}

// resumeIn runs the handed-off sync in tab and closes it afterwards.
func resumeIn(ctx context.Context, w io.Writer, m *browser.Manager, tab *browser.Tab, mb *handoff.Mailbox, gw *gateway.Gateway) error {
	defer tab.Close()
	o := orchestrator.New(orchestrator.Config{}, progressPrinter(w), orchestrator.Deps{
		Mailbox:    mb,
		Extractors: extractors(m, tab, gw),
		Logger:     logger,
	})
	return o.Resume(ctx)
}

func runSyncStart(cmd *cobra.Command, _ []string) error {
	p := pagetype.Platform(strings.ToLower(syncPlatform))
	if !p.Valid() {
		return fmt.Errorf("unknown platform %q", syncPlatform)
	}
	if syncCampaign <= 0 {
		return errors.New("--campaign is required")
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	go netwatch.New(s.gw, netwatch.Options{
		URL:      cfg.Backend.HealthURL,
		Interval: cfg.Backend.CheckInterval,
		Logger:   logger,
	}).Run(ctx)

	m, err := startBrowser(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	mb := newMailbox(s.state)
	out := cmd.OutOrStdout()
	done := make(chan error, 1)
	opener := browser.NewOpener(ctx, m, func(ctx context.Context, tab *browser.Tab) {
		done <- resumeIn(ctx, out, m, tab, mb, s.gw)
	})

	o := orchestrator.New(orchestrator.Config{
		CampaignID:         syncCampaign,
		Platform:           p,
		Offering:           syncOffering,
		IntelligentMode:    syncIntelligent,
		MaxLeadsPerKeyword: syncMaxLeads,
		Subreddits:         syncSubreddits,
	}, progressPrinter(out), orchestrator.Deps{
		Backend: s.gw,
		Mailbox: mb,
		Opener:  opener,
		Logger:  logger,
	})
	if err := o.Start(ctx); err != nil {
		return err
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := s.gw.QueueLen(); n > 0 {
		logger.Warn("sync: requests still queued for delivery", "count", n)
	}
	return nil
}

func runSyncResume(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := startBrowser(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	mb := newMailbox(s.state)
	rec, err := mb.Peek(ctx)
	if err != nil {
		return err
	}
	tab, err := m.OpenTab(ctx, pagetype.HomeURL(rec.Platform), false)
	if err != nil {
		return err
	}
	return resumeIn(ctx, cmd.OutOrStdout(), m, tab, mb, s.gw)
}

func init() {
	f := syncStartCmd.Flags()
	f.Int64Var(&syncCampaign, "campaign", 0, "campaign id")
	f.StringVar(&syncPlatform, "platform", "", "linkedin, reddit or x")
	f.StringVar(&syncOffering, "offering", "", "what the campaign offers")
	f.BoolVar(&syncIntelligent, "intelligent", false, "let the backend validate leads")
	f.IntVar(&syncMaxLeads, "max-per-keyword", 0, "stop each search term after this many leads (0 = no limit)")
	f.StringSliceVar(&syncSubreddits, "subreddit", nil, "restrict reddit searches to these subreddits")

	syncCmd.AddCommand(syncStartCmd, syncResumeCmd)
	rootCmd.AddCommand(syncCmd)
}
