package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ragchat-console/internal/backend"
	"ragchat-console/internal/config"
	"ragchat-console/internal/documents"
	"ragchat-console/internal/pkg/logger"
	"ragchat-console/internal/session"
	"ragchat-console/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	shutdownTracer := tracer.InitTracer("ragchat-admin")
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	zlog := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer zlog.Sync()

	store, err := session.NewStore(
		session.StoreDriver(cfg.Session.StoreDriver),
		session.WithTokenFile(cfg.Session.TokenFile),
		session.WithRedisURL(cfg.Session.RedisURL),
	)
	if err != nil {
		log.Fatalf("Unable to open session store: %v", err)
	}
	authority := session.NewAuthority(store)
	defer authority.Close()

	client := backend.NewClient(cfg.App.BackendURL, time.Duration(cfg.App.HTTPTimeout)*time.Second, authority, zlog)
	reconciler := documents.NewReconciler(client, zlog)

	a := &admin{
		client:     client,
		authority:  authority,
		reconciler: reconciler,
		in:         bufio.NewScanner(os.Stdin),
	}
	a.run()
}

type admin struct {
	client     *backend.Client
	authority  *session.Authority
	reconciler *documents.Reconciler
	in         *bufio.Scanner
}

func (a *admin) run() {
	ctx := context.Background()

	color.Cyan("Admin Dashboard")
	if _, ok := a.authority.Current(ctx); !ok {
		color.Yellow("Not authenticated. Use login to begin.")
	} else {
		a.refresh(ctx)
	}
	fmt.Println("Commands: login, refresh, delete <name>, upload <path>, logout, quit")

	for {
		fmt.Print("admin> ")
		if !a.in.Scan() {
			return
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "quit", "q":
			return
		case "login":
			a.login(ctx)
		case "logout":
			if err := a.client.Logout(ctx); err != nil {
				color.Red("Logout failed: %v", err)
			} else {
				color.Yellow("Session ended.")
			}
		case "refresh":
			a.refresh(ctx)
		case "delete":
			if len(fields) < 2 {
				color.Red("Usage: delete <name>")
				continue
			}
			a.delete(ctx, fields[1])
		case "upload":
			if len(fields) < 2 {
				color.Red("Usage: upload <path>")
				continue
			}
			a.upload(ctx, fields[1])
		default:
			color.Red("Unknown command %q", fields[0])
		}
	}
}

func (a *admin) refresh(ctx context.Context) {
	if err := a.reconciler.Fetch(ctx); err != nil {
		a.reportError("Error fetching documents", err)
		return
	}
	a.renderPanels()
}

func (a *admin) renderPanels() {
	snap := a.reconciler.Snapshot()

	color.Yellow("Pending Documents (%d pending)", len(snap.Pending))
	if len(snap.Pending) == 0 {
		fmt.Println("  No pending documents")
	}
	for _, doc := range snap.Pending {
		fmt.Printf("  %s\n", doc)
	}

	color.Green("Processed Documents (%d completed)", len(snap.Processed))
	if len(snap.Processed) == 0 {
		fmt.Println("  No processed documents")
	}
	for _, doc := range snap.Processed {
		fmt.Printf("  %s\n", doc)
	}
}

func (a *admin) delete(ctx context.Context, name string) {
	if err := a.reconciler.Delete(ctx, name); err != nil {
		if errors.Is(err, documents.ErrNotProcessed) {
			color.Red("%s is not a processed document.", name)
			return
		}
		a.reportError("Error deleting document", err)
		return
	}
	a.renderPanels()
}

func (a *admin) upload(ctx context.Context, path string) {
	file, err := os.Open(path)
	if err != nil {
		color.Red("Cannot open %s: %v", path, err)
		return
	}
	defer file.Close()

	res, err := a.client.Upload(ctx, path, file)
	if err != nil {
		if errors.Is(err, backend.ErrNotPDF) {
			color.Red("Please select a PDF file.")
			return
		}
		a.reportError("Upload failed", err)
		return
	}
	color.Green("%s", res.Message)
	a.refresh(ctx)
}

func (a *admin) login(ctx context.Context) {
	email := a.prompt("Email: ")
	pass := a.prompt("Password: ")
	res, err := a.client.Login(ctx, email, pass)
	if err != nil {
		color.Red("Login failed: %v", err)
		return
	}
	if !res.IsAdmin {
		color.Yellow("Logged in, but this account is not an admin; document routes will be rejected.")
	} else {
		color.Green("Logged in as admin.")
	}
	a.refresh(ctx)
}

func (a *admin) reportError(prefix string, err error) {
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, backend.ErrSessionExpired) {
		color.Yellow("Please login first.")
		return
	}
	color.Red("%s: %v", prefix, err)
}

func (a *admin) prompt(label string) string {
	fmt.Print(label)
	if !a.in.Scan() {
		return ""
	}
	return strings.TrimSpace(a.in.Text())
}
