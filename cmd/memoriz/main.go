// Command memoriz is a CLI client for the memoriz REST API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/memoriz/internal/auth"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/version"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "memoriz")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "memoriz")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run `memoriz token` first)")
	}
	return tf.AccessToken, nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func parseID(s string) (u.UUID, error) {
	id, err := u.FromString(strings.TrimSpace(s))
	if err != nil {
		return u.Nil, fmt.Errorf("bad -id %q", s)
	}
	return id, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `memoriz CLI
Usage:
  memoriz -addr URL <cmd> [args]

Commands:
  version
  health
  token      -user <uuid> -jwt-key <key> [-ttl 1h]   (mints a dev token, saves it)
  list       [-board <uuid>] [-archived true|false]
  get        -id <uuid>
  add        -title <t> [-content <c> | -file <path|->] [-board <uuid>] [-color <c>]
  edit       -id <uuid> [-title <t>] [-content <c> | -file <path|->] [-color <c>]
  rm         -id <uuid>
  archive    -id <uuid>
  unarchive  -id <uuid>
  search     -q <query>
  boards
  board-add  -title <t> [-color <c>]
  board-rm   -id <uuid>
  reindex
`)
	os.Exit(2)
}

// ---- main ----

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, *addr, flag.Args(), os.Stdout); err != nil {
		fail(err)
	}
}

// run executes one subcommand against the server at addr.
func run(ctx context.Context, addr string, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "version":
		vi := version.Get()
		fmt.Fprintf(out, "memoriz %s (%s, %s)\n", vi.Version, vi.Commit, vi.BuildDate)
		return nil

	case "health":
		h, err := newClient(addr, "").health(ctx)
		if err != nil {
			return err
		}
		printJSON(out, h)
		return nil

	case "token":
		fs := flag.NewFlagSet("token", flag.ContinueOnError)
		user := fs.String("user", "", "user uuid")
		key := fs.String("jwt-key", os.Getenv("MEMORIZ_JWT_KEY"), "HS256 signing key")
		ttl := fs.Duration("ttl", time.Hour, "token lifetime")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := u.FromString(*user)
		if err != nil || *key == "" {
			return errors.New("need -user <uuid> and -jwt-key")
		}
		tok, exp, err := auth.NewIssuer([]byte(*key), *ttl).Issue(id)
		if err != nil {
			return err
		}
		if err := saveToken(tok, exp); err != nil {
			return err
		}
		fmt.Fprintln(out, tok)
		return nil
	}

	tok, err := loadToken()
	if err != nil {
		return err
	}
	cl := newClient(addr, tok)

	switch cmd {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		board := fs.String("board", "", "board uuid")
		archived := fs.String("archived", "", "true|false, empty for all")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		var bp *u.UUID
		if *board != "" {
			id, err := parseID(*board)
			if err != nil {
				return err
			}
			bp = &id
		}
		entries, err := cl.listEntries(ctx, bp, *archived)
		if err != nil {
			return err
		}
		printJSON(out, entries)

	case "get", "rm", "archive", "unarchive", "board-rm":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		raw := fs.String("id", "", "uuid")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := parseID(*raw)
		if err != nil {
			return err
		}
		return idCommand(ctx, cl, cmd, id, out)

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		title := fs.String("title", "", "title")
		content := fs.String("content", "", "content")
		file := fs.String("file", "", "read content from file (- for stdin)")
		board := fs.String("board", "", "board uuid")
		color := fs.String("color", "", "color")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		e := model.Entry{Title: *title}
		if err := applyContent(&e, *content, *file); err != nil {
			return err
		}
		if *board != "" {
			id, err := parseID(*board)
			if err != nil {
				return err
			}
			e.Board = &id
		}
		if *color != "" {
			e.Color = color
		}
		created, err := cl.createEntry(ctx, e)
		if err != nil {
			return err
		}
		printJSON(out, created)

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ContinueOnError)
		raw := fs.String("id", "", "uuid")
		title := fs.String("title", "", "new title")
		content := fs.String("content", "", "new content")
		file := fs.String("file", "", "read content from file (- for stdin)")
		color := fs.String("color", "", "new color")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := parseID(*raw)
		if err != nil {
			return err
		}
		e, err := cl.getEntry(ctx, id)
		if err != nil {
			return err
		}
		if *title != "" {
			e.Title = *title
		}
		if err := applyContent(&e, *content, *file); err != nil {
			return err
		}
		if *color != "" {
			e.Color = color
		}
		updated, err := cl.updateEntry(ctx, e)
		if err != nil {
			return err
		}
		printJSON(out, updated)

	case "search":
		fs := flag.NewFlagSet("search", flag.ContinueOnError)
		q := fs.String("q", "", "query")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		hits, err := cl.search(ctx, *q)
		if err != nil {
			return err
		}
		printJSON(out, hits)

	case "boards":
		boards, err := cl.listBoards(ctx)
		if err != nil {
			return err
		}
		printJSON(out, boards)

	case "board-add":
		fs := flag.NewFlagSet("board-add", flag.ContinueOnError)
		title := fs.String("title", "", "title")
		color := fs.String("color", "", "color")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		b := model.Board{Title: *title}
		if *color != "" {
			b.Color = color
		}
		created, err := cl.createBoard(ctx, b)
		if err != nil {
			return err
		}
		printJSON(out, created)

	case "reindex":
		n, err := cl.reindex(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "indexed %d entries\n", n)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func idCommand(ctx context.Context, cl *apiClient, cmd string, id u.UUID, out io.Writer) error {
	switch cmd {
	case "rm":
		return cl.deleteEntry(ctx, id)
	case "board-rm":
		return cl.deleteBoard(ctx, id)
	}

	var (
		e   model.Entry
		err error
	)
	switch cmd {
	case "get":
		e, err = cl.getEntry(ctx, id)
	case "archive":
		e, err = cl.setArchived(ctx, id, true)
	case "unarchive":
		e, err = cl.setArchived(ctx, id, false)
	}
	if err != nil {
		return err
	}
	printJSON(out, e)
	return nil
}

// applyContent sets e.Content from -content or -file; -file wins.
func applyContent(e *model.Entry, content, file string) error {
	if file != "" {
		b, err := readAll(file)
		if err != nil {
			return err
		}
		s := string(b)
		e.Content = &s
		return nil
	}
	if content != "" {
		e.Content = &content
	}
	return nil
}

// ---- helpers ----

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, strings.TrimSpace(ae.Body))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
