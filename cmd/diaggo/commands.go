package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/diaggo"
	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/comm"
	"github.com/hupe1980/diaggo/distributed"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/metrics/prom"
	"github.com/hupe1980/diaggo/operator"
	"github.com/hupe1980/diaggo/resource"
	"github.com/hupe1980/diaggo/snapshot"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	logger    *diaggo.Logger
}

type eigvalsFlags struct {
	model         string
	neigvals      int
	precision     float64
	maxIterations int
	seed          uint64
	workers       int
	ranks         int
	memoryLimit   int64
	store         string
	name          string
	compression   string
	vector        bool
	metricsOut    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "diaggo",
		Short:         "Exact diagonalization of quantum many-body models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := newLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			if err != nil {
				return err
			}
			g.logger = l
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(newInfoCmd(g), newEigvalsCmd(g), newShowCmd(g))
	return rootCmd
}

func newLogger(w io.Writer, level, format string) (*diaggo.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return diaggo.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return diaggo.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q", format)
	}
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Build the basis of a model and print its size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadModel(model)
			if err != nil {
				return err
			}
			d, err := cfg.Descriptor()
			if err != nil {
				return err
			}
			b, err := diaggo.NewBasis(cmd.Context(), d, diaggo.WithLogger(g.logger))
			if err != nil {
				return err
			}
			ops, err := cfg.OpSum()
			if err != nil {
				return err
			}
			ts, err := operator.Compile(ops, b.NSites())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "basis:     %s\n", basis.String(b))
			fmt.Fprintf(w, "size:      %d\n", b.Size())
			fmt.Fprintf(w, "dim:       %d\n", b.Dim())
			fmt.Fprintf(w, "operators: %d\n", ops.Len())
			fmt.Fprintf(w, "terms:     %d\n", len(ts))
			fmt.Fprintf(w, "hermitian: %t\n", operator.IsHermitian(ts))
			fmt.Fprintf(w, "real:      %t\n", operator.IsReal(ts) && basis.IsReal(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model file (YAML)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newEigvalsCmd(g *globalFlags) *cobra.Command {
	f := &eigvalsFlags{}
	cmd := &cobra.Command{
		Use:   "eigvals",
		Short: "Compute the lowest eigenvalues with Lanczos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEigvals(cmd.Context(), cmd.OutOrStdout(), g.logger, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "Model file (YAML)")
	fl.IntVarP(&f.neigvals, "neigvals", "k", 1, "Number of eigenvalues")
	fl.Float64Var(&f.precision, "precision", diaggo.DefaultPrecision, "Convergence precision")
	fl.IntVar(&f.maxIterations, "max-iterations", 0, "Iteration limit (0 for the basis size)")
	fl.Uint64Var(&f.seed, "seed", diaggo.DefaultSeed, "Start vector seed")
	fl.IntVar(&f.workers, "workers", 1, "Term application workers")
	fl.IntVar(&f.ranks, "ranks", 1, "Ranks of a distributed run (spin-1/2 without symmetries)")
	fl.Int64Var(&f.memoryLimit, "memory-limit", 0, "Memory limit in bytes for matrices and Lanczos vectors (0 for none)")
	fl.StringVar(&f.store, "store", "", "Snapshot store (directory, file://, s3://, minio://)")
	fl.StringVar(&f.name, "name", "", "Snapshot name (defaults to the model file name)")
	fl.StringVar(&f.compression, "compression", "zstd", "Snapshot compression (none, lz4, zstd)")
	fl.BoolVar(&f.vector, "vector", false, "Store the ground state vector in the snapshot")
	fl.StringVar(&f.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func runEigvals(ctx context.Context, w io.Writer, logger *diaggo.Logger, f *eigvalsFlags) (err error) {
	cfg, err := LoadModel(f.model)
	if err != nil {
		return err
	}
	ops, err := cfg.OpSum()
	if err != nil {
		return err
	}
	compression, err := snapshot.ParseCompression(f.compression)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := prom.New(reg, "diaggo")
	if f.metricsOut != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(f.metricsOut, reg); werr != nil && err == nil {
				err = werr
			}
		}()
	}

	name := f.name
	if name == "" {
		name = snapshotName(f.model)
	}

	if f.ranks > 1 {
		if !cfg.Distributable() {
			return errors.New("--ranks needs a spin-1/2 model with fixed nup and no symmetry")
		}
		if f.vector {
			return errors.New("--vector is not supported with --ranks")
		}
		return runDistributed(ctx, w, logger, cfg, ops, f, name, compression, collector)
	}

	d, err := cfg.Descriptor()
	if err != nil {
		return err
	}
	var rc *resource.Controller
	if f.memoryLimit > 0 {
		rc = resource.NewController(resource.Config{MemoryLimitBytes: f.memoryLimit})
	}
	opts := []diaggo.Option{
		diaggo.WithLogger(logger),
		diaggo.WithMetricsCollector(collector),
		diaggo.WithWorkers(f.workers),
		diaggo.WithPrecision(f.precision),
		diaggo.WithSeed(f.seed),
		diaggo.WithResources(rc),
		diaggo.WithSnapshotCompression(compression),
	}
	if f.maxIterations > 0 {
		opts = append(opts, diaggo.WithMaxIterations(f.maxIterations))
	}

	b, err := diaggo.NewBasis(ctx, d, opts...)
	if err != nil {
		return err
	}
	run := diaggo.EigvalsLanczos
	if f.vector {
		run = diaggo.EigsLanczos
	}
	res, err := run(ctx, ops, b, f.neigvals, opts...)
	if err != nil {
		return err
	}
	printEigenvalues(w, res.Eigenvalues, res.Iterations, res.Criterion.String())

	if f.store == "" {
		return nil
	}
	store, err := openStore(ctx, f.store)
	if err != nil {
		return err
	}
	return diaggo.SaveSnapshot(ctx, store, name, b, res, f.vector, opts...)
}

func runDistributed(ctx context.Context, w io.Writer, logger *diaggo.Logger, cfg *ModelConfig, ops *operator.OpSum,
	f *eigvalsFlags, name string, compression snapshot.Compression, collector *prom.Collector) error {
	ts, err := operator.Compile(ops, cfg.NSites)
	if err != nil {
		return err
	}
	var lopts []lanczos.Option
	if f.maxIterations > 0 {
		lopts = append(lopts, lanczos.WithMaxIterations(f.maxIterations))
	}

	start := time.Now()
	return comm.Run(ctx, f.ranks, func(ctx context.Context, c comm.Communicator) error {
		b, err := distributed.NewSpinhalf(c, cfg.NSites, *cfg.NUp)
		if err != nil {
			return err
		}
		vals, res, err := distributed.EigvalsLanczos(ctx, ts, b, f.neigvals, f.precision, f.seed, lopts...)
		if c.Rank() != 0 {
			return err
		}
		collector.RecordLanczos(res.Iterations, time.Since(start), err)
		if err != nil {
			return err
		}
		logger.Info("distributed lanczos finished", "ranks", c.Size(), "dim", b.Dim(), "iterations", res.Iterations)
		printEigenvalues(w, vals, res.Iterations, res.Criterion.String())

		if f.store == "" {
			return nil
		}
		store, err := openStore(ctx, f.store)
		if err != nil {
			return err
		}
		rec := &snapshot.Record{
			Basis: basis.Descriptor{
				Model:  basis.ModelSpinhalf.String(),
				NSites: cfg.NSites,
				NUp:    *cfg.NUp,
				NDn:    basis.Unconserved,
			},
			Tmatrix:     res.Tmatrix,
			Eigenvalues: vals,
			Criterion:   res.Criterion.String(),
			Iterations:  res.Iterations,
		}
		err = snapshot.Save(ctx, store, name, rec, snapshot.WithCompression(compression))
		logger.LogSnapshot(ctx, name, err)
		return err
	})
}

func newShowCmd(_ *globalFlags) *cobra.Command {
	var store, name string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, store)
			if err != nil {
				return err
			}
			rec, err := snapshot.Load(ctx, s, name)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "model:     %s\n", rec.Basis.Model)
			fmt.Fprintf(w, "nsites:    %d\n", rec.Basis.NSites)
			fmt.Fprintf(w, "nup:       %d\n", rec.Basis.NUp)
			fmt.Fprintf(w, "ndn:       %d\n", rec.Basis.NDn)
			fmt.Fprintf(w, "symmetric: %t\n", len(rec.Basis.Group) > 0)
			switch {
			case rec.Vector != nil:
				fmt.Fprintf(w, "vector:    float64[%d]\n", len(rec.Vector))
			case rec.ComplexVector != nil:
				fmt.Fprintf(w, "vector:    complex128[%d]\n", len(rec.ComplexVector))
			}
			printEigenvalues(w, rec.Eigenvalues, rec.Iterations, rec.Criterion)
			return nil
		},
	}
	cmd.Flags().StringVar(&store, "store", "", "Snapshot store (directory, file://, s3://, minio://)")
	cmd.Flags().StringVar(&name, "name", "", "Snapshot name")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func printEigenvalues(w io.Writer, vals []float64, iterations int, criterion string) {
	fmt.Fprintf(w, "iterations: %d (%s)\n", iterations, criterion)
	for i, e := range vals {
		fmt.Fprintf(w, "%d\t%.12f\n", i, e)
	}
}

func snapshotName(modelPath string) string {
	base := modelPath
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if ext := strings.LastIndex(base, "."); ext > 0 {
		base = base[:ext]
	}
	return base + ".snap"
}
