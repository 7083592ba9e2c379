package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	session "github.com/goliatone/go-session-state"
	"github.com/goliatone/go-session-state/pkg/config"
	"github.com/goliatone/go-session-state/pkg/state"
	"github.com/goliatone/go-session-state/pkg/state/sqlitestore"
)

var errUsage = errors.New("usage: sessionctl [-db path] [-json] list|dump|keys|decode-key ...")

type cliConfig struct {
	DBPath string
	JSON   bool
	Args   []string
}

func parseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (cliConfig, error) {
	envCfg, err := config.LoadFrom(environ)
	if err != nil {
		return cliConfig{}, err
	}
	cfg := cliConfig{DBPath: envCfg.StorePath}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the snapshot sqlite database (default: SESSION_STORE_PATH or sessions.db)")
	fs.BoolVar(&cfg.JSON, "json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	cfg.Args = fs.Args()
	if len(cfg.Args) == 0 {
		return cliConfig{}, errUsage
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, environ map[string]string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := parseConfig(fs, args, environ)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 2
	}
	if err := execute(ctx, cfg, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg cliConfig, out io.Writer) error {
	command, rest := cfg.Args[0], cfg.Args[1:]
	if command == "decode-key" {
		return decodeKeys(rest, cfg.JSON, out)
	}

	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch command {
	case "list":
		return list(ctx, store, rest, cfg.JSON, out)
	case "dump":
		snapshot, meta, err := load(ctx, store, rest)
		if err != nil {
			return err
		}
		return writeJSON(out, struct {
			Meta     state.Meta     `json:"meta"`
			Snapshot state.Snapshot `json:"snapshot"`
		}{meta, snapshot})
	case "keys":
		snapshot, _, err := load(ctx, store, rest)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(snapshot.Entries))
		for _, entry := range snapshot.Entries {
			keys = append(keys, entry.Key)
		}
		return decodeKeys(keys, cfg.JSON, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func list(ctx context.Context, store *sqlitestore.Store, args []string, asJSON bool, out io.Writer) error {
	var (
		refs []state.Ref
		err  error
	)
	switch len(args) {
	case 0:
		refs, err = store.List(ctx)
	case 1:
		refs, err = store.ListSession(ctx, args[0])
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, refs)
	}
	for _, ref := range refs {
		fmt.Fprintln(out, ref.String())
	}
	return nil
}

func load(ctx context.Context, store state.Store, args []string) (state.Snapshot, state.Meta, error) {
	if len(args) != 2 {
		return state.Snapshot{}, state.Meta{}, errUsage
	}
	return state.NewManager(store).Load(ctx, state.Ref{Session: args[0], Model: args[1]})
}

type decodedKey struct {
	Key      string `json:"key"`
	Module   string `json:"module,omitempty"`
	TypeName string `json:"type,omitempty"`
	Field    string `json:"field,omitempty"`
	Valid    bool   `json:"valid"`
}

func decodeKeys(keys []string, asJSON bool, out io.Writer) error {
	if len(keys) == 0 {
		return errUsage
	}
	decoded := make([]decodedKey, 0, len(keys))
	for _, key := range keys {
		module, typeName, field, ok := session.ParseKey(key)
		decoded = append(decoded, decodedKey{Key: key, Module: module, TypeName: typeName, Field: field, Valid: ok})
	}
	if asJSON {
		return writeJSON(out, decoded)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tMODULE\tTYPE\tFIELD")
	for _, d := range decoded {
		if !d.Valid {
			fmt.Fprintf(w, "%s\t-\t-\t-\n", d.Key)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Key, d.Module, d.TypeName, d.Field)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
