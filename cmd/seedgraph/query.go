package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scrypster/seedgraph/internal/backend"
	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/pkg/types"
)

type queryOptions struct {
	file        string
	seeds       []string
	matching    string
	edges       string
	direction   string
	groups      []string
	noEntities  bool
	all         bool
	fixtures    []string
	withSummary bool
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run a seeded query and print matching elements",
		Long: `Run a query against the configured storage engine and print every
matching element as one JSON object per line.

The query is read from --file (JSON or YAML, "-" for stdin) and/or built
from flags; flags override the file. Seeds are written as:

  a      entity seed for vertex a
  a-b    undirected edge seed between a and b
  a>b    directed edge seed from a to b`,
		Example: `  seedgraph query --engine memory --data graph.yaml --seed a
  seedgraph query --seed a>b --matching EQUAL
  seedgraph query --all --group Person --edges NONE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, a, &opts)
		},
	}

	f := queryCmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", `query request file (JSON or YAML, "-" for stdin)`)
	f.StringArrayVarP(&opts.seeds, "seed", "s", nil, "seed (a, a-b or a>b); repeatable")
	f.StringVar(&opts.matching, "matching", "", "seed matching (EQUAL, RELATED)")
	f.StringVar(&opts.edges, "edges", "", "edges to include (ALL, NONE, DIRECTED, UNDIRECTED)")
	f.StringVar(&opts.direction, "direction", "", "edge direction relative to seeds (INCOMING, OUTGOING, BOTH)")
	f.StringSliceVarP(&opts.groups, "group", "g", nil, "restrict results to these groups")
	f.BoolVar(&opts.noEntities, "no-entities", false, "exclude entities from the results")
	f.BoolVar(&opts.all, "all", false, "return every stored element passing the filter; seeds are ignored")
	f.StringSliceVar(&opts.fixtures, "data", nil, "YAML fixture files or directories to load before querying")
	f.BoolVar(&opts.withSummary, "summary", false, "print the query ID and element count to stderr")

	return queryCmd
}

func runQuery(cmd *cobra.Command, a *app, opts *queryOptions) error {
	req, err := buildRequest(cmd, opts)
	if err != nil {
		return err
	}

	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if _, err := loadFixtures(ctx, store, opts.fixtures, logger); err != nil {
		return err
	}

	ev := engine.NewEvaluator(store, engine.WithLogger(logger))

	var stream *engine.Stream
	if opts.all {
		filter, err := engine.ParseFilter(req)
		if err != nil {
			return err
		}
		stream, err = ev.EvaluateAll(ctx, filter)
		if err != nil {
			return err
		}
	} else {
		q, err := engine.ParseRequest(req)
		if err != nil {
			return err
		}
		stream, err = ev.Evaluate(ctx, q.Seeds, q.Mode, q.Filter)
		if err != nil {
			return err
		}
	}
	defer func() { _ = stream.Close() }()

	enc := json.NewEncoder(cmd.OutOrStdout())
	for el, err := range stream.All() {
		if err != nil {
			return err
		}
		if err := enc.Encode(types.EncodeElement(el)); err != nil {
			return err
		}
	}

	if opts.withSummary {
		fmt.Fprintf(cmd.ErrOrStderr(), "query %s: %d elements\n", stream.ID(), stream.Count())
	}
	return nil
}

// buildRequest reads the request file, if any, and applies the flags that
// were set on top of it.
func buildRequest(cmd *cobra.Command, opts *queryOptions) (types.QueryRequest, error) {
	var req types.QueryRequest
	if opts.file != "" {
		var err error
		if req, err = readRequest(cmd.InOrStdin(), opts.file); err != nil {
			return req, err
		}
	}

	flags := cmd.Flags()
	for _, s := range opts.seeds {
		seed, err := parseSeed(s)
		if err != nil {
			return req, err
		}
		req.Seeds = append(req.Seeds, seed)
	}
	if flags.Changed("matching") {
		req.SeedMatching = strings.ToUpper(opts.matching)
	}
	if flags.Changed("edges") {
		req.IncludeEdges = strings.ToUpper(opts.edges)
	}
	if flags.Changed("direction") {
		req.IncludeIncomingOutgoing = strings.ToUpper(opts.direction)
	}
	if flags.Changed("group") {
		req.Groups = make([]types.Group, 0, len(opts.groups))
		for _, g := range opts.groups {
			req.Groups = append(req.Groups, types.Group(g))
		}
	}
	if flags.Changed("no-entities") {
		include := !opts.noEntities
		req.IncludeEntities = &include
	}
	return req, nil
}

// readRequest decodes a query request from path, or from stdin when path is
// "-". YAML is a superset of JSON, so one decoder reads both.
func readRequest(stdin io.Reader, path string) (types.QueryRequest, error) {
	var req types.QueryRequest

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("failed to open query file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: %s: %w", engine.ErrInvalidQuery, path, err)
	}
	return req, nil
}

// parseSeed reads the command-line seed notation.
func parseSeed(s string) (types.SeedJSON, error) {
	if src, dst, ok := strings.Cut(s, ">"); ok {
		if src == "" || dst == "" {
			return types.SeedJSON{}, fmt.Errorf("%w: bad seed %q", engine.ErrInvalidQuery, s)
		}
		return types.SeedJSON{Class: types.ClassEdgeSeed, Source: types.VertexID(src), Destination: types.VertexID(dst), Directed: true}, nil
	}
	if src, dst, ok := strings.Cut(s, "-"); ok {
		if src == "" || dst == "" {
			return types.SeedJSON{}, fmt.Errorf("%w: bad seed %q", engine.ErrInvalidQuery, s)
		}
		return types.SeedJSON{Class: types.ClassEdgeSeed, Source: types.VertexID(src), Destination: types.VertexID(dst)}, nil
	}
	if s == "" {
		return types.SeedJSON{}, fmt.Errorf("%w: empty seed", engine.ErrInvalidQuery)
	}
	return types.SeedJSON{Class: types.ClassEntitySeed, Vertex: types.VertexID(s)}, nil
}
