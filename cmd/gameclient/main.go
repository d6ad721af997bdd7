package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ocgp/gameclient/internal/api"
	"github.com/ocgp/gameclient/internal/client"
	"github.com/ocgp/gameclient/internal/models"
	"github.com/ocgp/gameclient/internal/sessionstore"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := flag.String("config", "", "path to YAML config file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sessions, err := sessionstore.Open(cfg.SessionDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}

	backend := api.NewClient(cfg.Server.BaseURL)
	ctrlCfg := client.DefaultConfig(cfg.Server.WSURL)
	ctrlCfg.PollInterval = cfg.pollInterval()
	ctrlCfg.LatencyInterval = cfg.latencyInterval()

	ctrl := client.New(backend, logRenderer{}, sessions, clockwork.NewRealClock(), ctrlCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("base_url", cfg.Server.BaseURL).
		Str("ws_url", cfg.Server.WSURL).
		Msg("starting game client")

	ctrl.Start(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ctrl.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		runREPL(ctx, ctrl)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("client exited with error")
	}
	log.Info().Msg("goodbye")
}

// runREPL reads commands from stdin until quit, EOF, or shutdown. Reads go
// through a channel so a signal can end the loop while the scanner goroutine
// is still blocked on stdin.
func runREPL(ctx context.Context, ctrl *client.Controller) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println("commands: register|login <user> <pass>, rooms, create <name> <GOBANG|CHINESE_CHESS>, join <id>, start, restart, move <coords...>, chat <text>, leave, logout, quit")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if !dispatch(ctrl, fields) {
				return
			}
		}
	}
}

// dispatch runs one command; false means quit.
func dispatch(ctrl *client.Controller, fields []string) bool {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "quit", "exit":
		return false
	case "login", "register":
		if len(args) != 2 {
			fmt.Println("usage:", cmd, "<user> <pass>")
			return true
		}
		if cmd == "login" {
			ctrl.Login(args[0], args[1])
		} else {
			ctrl.Register(args[0], args[1])
		}
	case "logout":
		ctrl.Logout()
	case "rooms":
		ctrl.EnterLobby()
	case "create":
		if len(args) < 2 {
			fmt.Println("usage: create <name> <GOBANG|CHINESE_CHESS> [private]")
			return true
		}
		private := len(args) > 2 && args[2] == "private"
		ctrl.CreateRoom(args[0], models.GameType(args[1]), private)
	case "join":
		if len(args) != 1 {
			fmt.Println("usage: join <room-id>")
			return true
		}
		ctrl.JoinRoom(args[0])
	case "start":
		ctrl.StartGame()
	case "restart":
		ctrl.RestartGame()
	case "move":
		input, err := parseMove(ctrl, args)
		if err != nil {
			fmt.Println(err)
			return true
		}
		ctrl.SubmitMove(input)
	case "chat":
		ctrl.SendChat(strings.Join(args, " "))
	case "leave":
		ctrl.LeaveRoom()
	case "status":
		printStatus(ctrl)
	default:
		fmt.Println("unknown command:", cmd)
	}
	return true
}

// parseMove shapes coordinate arguments for the active room's game type.
func parseMove(ctrl *client.Controller, args []string) (map[string]any, error) {
	room := ctrl.Room()
	if room == nil {
		return nil, fmt.Errorf("not in a room")
	}
	nums := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("move coordinates must be integers")
		}
		nums = append(nums, n)
	}
	switch room.GameType {
	case models.GameTypeGobang:
		if len(nums) != 2 {
			return nil, fmt.Errorf("usage: move <x> <y>")
		}
		return map[string]any{"x": nums[0], "y": nums[1]}, nil
	case models.GameTypeChineseChess:
		if len(nums) != 4 {
			return nil, fmt.Errorf("usage: move <fromRow> <fromCol> <toRow> <toCol>")
		}
		return map[string]any{
			"fromRow": nums[0], "fromCol": nums[1],
			"toRow": nums[2], "toCol": nums[3],
		}, nil
	default:
		return nil, fmt.Errorf("unsupported game type %q", room.GameType)
	}
}

func printStatus(ctrl *client.Controller) {
	fmt.Printf("context=%s transport=%s countdown=%s elapsed=%s latency=%s\n",
		ctrl.CurrentContext(), ctrl.Transport(),
		ctrl.CountdownDisplay(), ctrl.ElapsedDisplay(), ctrl.LastLatency())
	if room := ctrl.Room(); room != nil {
		fmt.Printf("room=%s (%s) players=%d status=%s\n",
			room.Name, room.GameType, len(room.PlayerIDs), room.CurrentStatus())
	}
}
