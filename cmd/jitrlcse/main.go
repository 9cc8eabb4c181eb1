/*
jitrlcse discovers compiler heuristics for just-in-time CSE elimination by
modeling candidate selection as a finite-horizon MDP, replaying candidate
sequences through an external compiler, and either exhaustively/randomly
exploring the candidate space (mcmc mode) or training a policy-gradient
parameter vector against it (train mode). Progress and diagnostics are
served over an observational websocket dashboard, never on the training
critical path.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"jitrlcse/internal/cache"
	"jitrlcse/internal/mcmc"
	"jitrlcse/internal/progress"
	"jitrlcse/internal/qv"
	"jitrlcse/internal/replayhost"
	"jitrlcse/internal/selector"
	"jitrlcse/internal/trainer"
	"jitrlcse/internal/trainerconfig"
)

var (
	mode          *string
	configPath    *string
	corpus        *string
	hostRoot      *string
	hostBinary    *string
	dashboardAddr *string
	withDashboard *bool
)

// TODO: per 12-factor rules these should come from env/config-map; KISS for now.
func init() {
	mode = flag.String("mode", "train", "run mode: mcmc or train")
	configPath = flag.String("config", "./config.yaml", "path to the mcmc or training config yaml")
	corpus = flag.String("corpus", "", "path to the method corpus file")
	hostRoot = flag.String("host-root", "", "working directory for the Replay Host invocations")
	hostBinary = flag.String("host-binary", "", "path to the Replay Host binary")
	dashboardAddr = flag.String("dashboard-addr", "127.0.0.1:8080", "address the progress dashboard listens on")
	withDashboard = flag.Bool("dashboard", true, "serve the progress dashboard")
	flag.Parse()
}

func runApp() error {
	if *corpus == "" {
		return fmt.Errorf("jitrlcse: -corpus is required")
	}
	if *hostRoot == "" || *hostBinary == "" {
		return fmt.Errorf("jitrlcse: -host-root and -host-binary are required")
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	driver := replayhost.NewDriver(*hostRoot, *hostBinary)
	go driver.WatchCancellation(appCtx)

	store := qv.NewStore()
	methods, err := cache.BuildMethodList(appCtx, *corpus, *hostRoot, driver, store)
	if err != nil {
		return err
	}
	log.Print(cache.Summary(methods))

	var dash *progress.Dashboard
	if *withDashboard {
		if dash, err = progress.NewDashboard(appCtx, *dashboardAddr); err != nil {
			return err
		}
		go func() {
			if serveErr := dash.Serve(); serveErr != nil {
				log.Printf("jitrlcse: dashboard stopped: %v", serveErr)
			}
		}()
	}

	switch *mode {
	case "mcmc":
		return runMCMC(appCtx, driver, store, methods)
	case "train":
		return runTrain(appCtx, driver, store, methods, dash)
	default:
		return fmt.Errorf("jitrlcse: unrecognized -mode %q", *mode)
	}
}

func runMCMC(ctx context.Context, driver *replayhost.Driver, store *qv.Store, methods []qv.Method) error {
	cfg, err := trainerconfig.MCMCFromYaml(*configPath)
	if err != nil {
		return err
	}

	selected := selector.Select(methods, store, selector.Options{
		NumMethods:       cfg.Selector.NumMethods,
		MinCandidates:    cfg.Selector.MinCandidates,
		MaxCandidates:    cfg.Selector.MaxCandidates,
		RandomSample:     cfg.Selector.RandomSample,
		RandomSampleSeed: cfg.Selector.RandomSampleSeed,
		UseSpecific:      cfg.Selector.UseSpecific,
		UseAdditional:    cfg.Selector.UseAdditional,
	})

	result := mcmc.Explore(ctx, driver, selected, store, mcmc.Options{
		MinCandidatesForRandomTrials: cfg.MinCandidatesForRandomTrials,
		NumRandomTrials:              cfg.NumRandomTrials,
		Salt:                         cfg.Salt,
	})

	log.Printf("mcmc: %d methods explored, baseline/best=%.5f best/nocse=%.5f baseline/nocse=%.5f",
		len(result.Methods), result.GeomeanBaselineOverBest, result.GeomeanBestOverNoCSE, result.GeomeanBaselineOverNoCSE)
	return nil
}

func runTrain(ctx context.Context, driver *replayhost.Driver, store *qv.Store, methods []qv.Method, dash *progress.Dashboard) error {
	cfg, err := trainerconfig.TrainingFromYaml(*configPath)
	if err != nil {
		return err
	}

	selected := selector.Select(methods, store, selector.Options{
		NumMethods:       cfg.Selector.NumMethods,
		MinCandidates:    cfg.Selector.MinCandidates,
		MaxCandidates:    cfg.Selector.MaxCandidates,
		RandomSample:     cfg.Selector.RandomSample,
		RandomSampleSeed: cfg.Selector.RandomSampleSeed,
		UseSpecific:      cfg.Selector.UseSpecific,
		UseAdditional:    cfg.Selector.UseAdditional,
	})

	tr := &trainer.Trainer{
		Driver:  driver,
		Store:   store,
		Corpus:  *corpus,
		Methods: selected,
		Config:  *cfg,
	}
	if dash != nil {
		tr.Progress = func(ctx context.Context, summary trainer.RoundSummary) {
			dash.Publish(progress.Snapshot{Round: summary})
		}
	}

	result, err := tr.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("train: completed %d rounds, final theta has %d parameters", result.Rounds, len(result.FinalTheta))
	return nil
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
