package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/echocloset/internal/config"
	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/gate"
	"github.com/lazypower/echocloset/internal/llm"
	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/server"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/lazypower/echocloset/internal/tagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the expiry scanner",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	persister, closeStore, err := openPersister(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	st, err := store.Open(persister)
	if err != nil {
		// an unreadable journal is the one thing we refuse to start with
		return fmt.Errorf("open journal %s: %w", persister.Location(), err)
	}

	tg, err := buildTagger(cfg.Classifier)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg.Notifier)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	eng := engine.New(st, tg, notifier, clock, engine.Options{
		ScanInterval:        cfg.Journal.ScanInterval,
		AnalyzeTopK:         cfg.Journal.AnalyzeTopK,
		DefaultCooldownDays: cfg.Journal.DefaultCooldownDays,
	})

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ghost, err := gate.New(clock, cfg.Ghost.Enabled, cfg.Ghost.Start, cfg.Ghost.End, loc)
	if err != nil {
		return fmt.Errorf("ghost mode: %w", err)
	}

	srv := server.New(eng, ghost, clock, server.Options{
		Version:       VersionString(),
		ConfirmWindow: cfg.Journal.ConfirmWindow,
	})
	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	grp, gctx := errgroup.WithContext(ctx)
	eng.Start(gctx)

	grp.Go(func() error {
		slog.Info("echocloset serving", "addr", addr, "store", st.Location(), "entries", st.Len(),
			"notifier", cfg.Notifier.Kind, "classifier", cfg.Classifier.Provider, "ghost", ghost.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpServer.Shutdown(sctx)
		eng.Stop()
		return err
	})

	return grp.Wait()
}

// openPersister picks the storage backend. The returned func releases it.
func openPersister(sc config.StoreConfig) (store.Persister, func(), error) {
	switch sc.Backend {
	case "sqlite":
		path := sc.Path
		if path == "" {
			var err error
			if path, err = store.DefaultPath("records.db"); err != nil {
				return nil, nil, fmt.Errorf("resolve store path: %w", err)
			}
		}
		p, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return p, func() { p.Close() }, nil
	default:
		path := sc.Path
		if path == "" {
			var err error
			if path, err = store.DefaultPath("records.json"); err != nil {
				return nil, nil, fmt.Errorf("resolve store path: %w", err)
			}
		}
		return store.NewFilePersister(path), func() {}, nil
	}
}

// buildTagger loads the lexicon, the segmenter and the optional classifier.
// A missing segmenter dictionary or classifier degrades instead of failing.
func buildTagger(cc config.ClassifierConfig) (*tagger.Tagger, error) {
	lex, err := tagger.LoadLexicon(cc.LexiconPath)
	if err != nil {
		return nil, err
	}

	var tok tagger.Tokenizer
	seg, err := tagger.NewSegmentTokenizer(lex.Keywords())
	if err != nil {
		slog.Warn("word segmenter unavailable, using keyword matcher", "error", err)
		tok = tagger.NewMaxMatchTokenizer(lex.Keywords())
	} else {
		tok = seg
	}

	var opts []tagger.Option
	classifier, err := llm.NewClassifier(cc)
	switch {
	case err != nil:
		slog.Warn("classifier disabled", "provider", cc.Provider, "error", err)
	case classifier != nil:
		opts = append(opts, tagger.WithClassifier(classifier, cc.Timeout))
	}
	return tagger.New(lex, tok, opts...), nil
}

func buildNotifier(nc config.NotifierConfig) (notify.Notifier, error) {
	switch nc.Kind {
	case "discord":
		return notify.NewDiscord(nc.Token, "", nc.Timeout), nil
	case "webhook":
		return notify.NewWebhook(nc.WebhookURL, nc.Timeout), nil
	case "log":
		return notify.NewLog(nil), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", nc.Kind)
	}
}
