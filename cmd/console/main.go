package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"ragchat-console/internal/backend"
	"ragchat-console/internal/config"
	"ragchat-console/internal/conversation"
	"ragchat-console/internal/dispatch"
	"ragchat-console/internal/dto"
	"ragchat-console/internal/password"
	"ragchat-console/internal/pkg/logger"
	"ragchat-console/internal/session"
	"ragchat-console/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer("ragchat-console")
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Logger
	zlog := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer zlog.Sync()

	// 3. Session authority over the configured token store
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

	authority.Subscribe(func(ev session.Event) {
		if ev == session.EventEvicted {
			color.Yellow("Session ended. Use :login to authenticate.")
		}
	})

	// 4. Backend client and interaction engine
	client := backend.NewClient(cfg.App.BackendURL, time.Duration(cfg.App.HTTPTimeout)*time.Second, authority, zlog)
	model := conversation.NewModel()
	dispatcher := dispatch.New(model, client, zlog)

	c := &console{
		cfg:        cfg,
		client:     client,
		authority:  authority,
		model:      model,
		dispatcher: dispatcher,
		modelName:  cfg.Chat.DefaultModel,
		in:         bufio.NewScanner(os.Stdin),
	}
	c.run()
}

type console struct {
	cfg        *config.Config
	client     *backend.Client
	authority  *session.Authority
	model      *conversation.Model
	dispatcher *dispatch.Dispatcher
	modelName  string
	in         *bufio.Scanner
}

func (c *console) run() {
	ctx := context.Background()

	color.Cyan("RAG Chat Dashboard")
	if _, ok := c.authority.Current(ctx); !ok {
		color.Yellow("Not authenticated. Use :login to begin.")
	}
	fmt.Println("Type a question to ask, or :help for commands.")

	for {
		fmt.Printf("[%s] > ", c.modelName)
		if !c.in.Scan() {
			return
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := c.command(ctx, line); quit {
				return
			}
			continue
		}

		c.submit(ctx, line)
	}
}

func (c *console) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		c.help()
	case ":login":
		c.login(ctx)
	case ":logout":
		if err := c.client.Logout(ctx); err != nil {
			color.Red("Logout failed: %v", err)
		}
	case ":register":
		c.register(ctx)
	case ":passwd":
		c.updatePassword(ctx)
	case ":model":
		if len(fields) < 2 {
			color.Red("Usage: :model <gemini|openai|ollama>")
			return
		}
		c.modelName = strings.ToLower(fields[1])
	case ":sources":
		c.disclose(fields[1:])
	case ":history":
		c.history(ctx)
	default:
		color.Red("Unknown command %s (try :help)", fields[0])
	}
	return false
}

func (c *console) help() {
	fmt.Println(`Commands:
  :login                    authenticate against the backend
  :logout                   end the session
  :register                 create a new account
  :passwd                   update your password
  :model <name>             switch model (gemini, openai, ollama)
  :sources <turn> <channel> expand evidence (channel: keyword or semantic)
  :history                  list past queries recorded by the backend
  :quit                     exit`)
}

func (c *console) submit(ctx context.Context, text string) {
	before := c.model.Len()
	err := c.dispatcher.Submit(ctx, text, c.modelName)
	switch {
	case err == nil:
		// fallthrough to render
	case errors.Is(err, dispatch.ErrEmptyQuery):
		color.Red("Nothing to ask.")
		return
	case errors.Is(err, dispatch.ErrUnknownModel):
		color.Red("Unknown model %q (gemini, openai or ollama).", c.modelName)
		return
	case errors.Is(err, dispatch.ErrBusy):
		color.Red("A query is still in flight.")
		return
	case errors.Is(err, session.ErrNoSession), errors.Is(err, backend.ErrSessionExpired):
		color.Yellow("Please :login first.")
		return
	default:
		color.Red("Query failed: %v", err)
		return
	}

	for i := before; i < c.model.Len(); i++ {
		turn, _ := c.model.Turn(i)
		c.render(i, turn)
	}
}

func (c *console) render(i int, t conversation.Turn) {
	switch {
	case t.Sender == conversation.SenderUser:
		color.Cyan("you> %s", t.Text)
	case t.IsError:
		color.Red("bot> %s", t.Text)
	default:
		fmt.Printf("bot> %s\n", t.Text)
		if ev := t.Provenance.Channel(conversation.ChannelKeyword); ev != nil {
			color.HiBlack("     Keyword metadata: %s  (:sources %d keyword)", ev.Summary, i)
		}
		if ev := t.Provenance.Channel(conversation.ChannelSemantic); ev != nil {
			color.HiBlack("     Semantic metadata: %s  (:sources %d semantic)", ev.Summary, i)
		}
	}
}

func (c *console) disclose(args []string) {
	if len(args) != 2 {
		color.Red("Usage: :sources <turn> <keyword|semantic>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		color.Red("Turn must be a number.")
		return
	}
	ch := conversation.Channel(strings.ToLower(args[1]))
	if err := c.model.Disclose(idx, ch); err != nil {
		color.Red("Cannot disclose: %v", err)
		return
	}
	turn, _ := c.model.Turn(c.model.Len() - 1)
	c.render(c.model.Len()-1, turn)
}

func (c *console) login(ctx context.Context) {
	email := c.prompt("Email: ")
	pass := c.prompt("Password: ")
	res, err := c.client.Login(ctx, email, pass)
	if err != nil {
		color.Red("Login failed: %v", err)
		return
	}
	if res.IsAdmin {
		color.Green("Logged in as admin. The admin binary manages documents.")
	} else {
		color.Green("Logged in.")
	}
}

func (c *console) register(ctx context.Context) {
	name := c.prompt("Name: ")
	email := c.prompt("Email: ")
	pass := c.prompt("Password: ")
	if err := password.Validate(pass); err != nil {
		color.Red("%v", err)
		return
	}
	err := c.client.Register(ctx, dto.RegisterRequest{Name: name, Email: email, Password: pass})
	if err != nil {
		color.Red("Registration failed: %v", err)
		return
	}
	color.Green("Account created. Use :login to sign in.")
}

func (c *console) updatePassword(ctx context.Context) {
	newPass := c.prompt("New password: ")
	confirm := c.prompt("Confirm password: ")
	if err := password.ValidateConfirmed(newPass, confirm); err != nil {
		color.Red("%v", err)
		return
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		c.reportAuthError("Could not fetch user", err)
		return
	}
	err = c.client.UpdateUser(ctx, user.Id, dto.UpdateUserRequest{Password: newPass})
	if err != nil {
		c.reportAuthError("Password update failed", err)
		return
	}
	color.Green("Password updated.")
}

func (c *console) history(ctx context.Context) {
	records, err := c.client.History(ctx)
	if err != nil {
		c.reportAuthError("Could not fetch history", err)
		return
	}
	if len(records) == 0 {
		fmt.Println("No history yet.")
		return
	}
	for _, rec := range records {
		color.Cyan("you> %s", rec.Query)
		fmt.Printf("bot> %s\n", rec.Answer)
	}
}

func (c *console) reportAuthError(prefix string, err error) {
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, backend.ErrSessionExpired) {
		color.Yellow("Please :login first.")
		return
	}
	color.Red("%s: %v", prefix, err)
}

func (c *console) prompt(label string) string {
	fmt.Print(label)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}
