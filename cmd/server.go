package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"mailwatch/core/config"
	"mailwatch/core/database"
	"mailwatch/core/logger"
	"mailwatch/core/secrets"
	"mailwatch/feature/registry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	serverHostname     string
	serverCLIPort      int
	serverWebadminPort int
	serverUsername     string
	serverNotes        string
	removeConfirm      bool
)

// serverCmd is the parent command for managing monitored servers.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the monitored mail servers",
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a mail server for monitoring",
	Long: `Register a mail server. The admin CLI password is read from the
terminal (or stdin when piped) and stored sealed with the configured key.

Example:
  mailwatch server add mx1 --hostname mx1.example.net --username admin`,
	Args: cobra.ExactArgs(1),
	RunE: runServerAdd,
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored servers",
	RunE:  runServerList,
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server and everything mirrored for it",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerRemove,
}

func init() {
	serverAddCmd.Flags().StringVar(&serverHostname, "hostname", "", "Server hostname (required)")
	serverAddCmd.Flags().IntVar(&serverCLIPort, "cli-port", 7000, "Admin CLI port")
	serverAddCmd.Flags().IntVar(&serverWebadminPort, "webadmin-port", 9000, "Webadmin port for the usage report")
	serverAddCmd.Flags().StringVar(&serverUsername, "username", "admin", "Admin CLI username")
	serverAddCmd.Flags().StringVar(&serverNotes, "notes", "", "Free-form notes")
	_ = serverAddCmd.MarkFlagRequired("hostname")

	serverRemoveCmd.Flags().BoolVar(&removeConfirm, "yes", false, "Auto-confirm removal (non-interactive)")

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	RootCmd.AddCommand(serverCmd)
}

func openStore() (*registry.Store, *config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return registry.NewStore(db), cfg, l, nil
}

func runServerAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	store, cfg, l, err := openStore()
	if err != nil {
		return err
	}

	box, err := secrets.NewBox(cfg.Secrets.Key)
	if err != nil {
		return fmt.Errorf("failed to load secrets key: %w", err)
	}

	password, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	sealed, err := box.Seal(password)
	if err != nil {
		return fmt.Errorf("failed to seal password: %w", err)
	}

	srv := &registry.Server{
		Name:              name,
		Hostname:          serverHostname,
		CLIPort:           serverCLIPort,
		WebadminPort:      serverWebadminPort,
		Username:          serverUsername,
		EncryptedPassword: sealed,
		Notes:             serverNotes,
	}
	if err := store.CreateServer(ctx, srv); err != nil {
		return err
	}

	l.Info("server registered",
		zap.String("name", name),
		zap.String("hostname", serverHostname))
	return nil
}

func runServerList(cmd *cobra.Command, args []string) error {
	store, _, _, err := openStore()
	if err != nil {
		return err
	}

	servers, err := store.ListServers(context.Background())
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Println("no servers registered")
		return nil
	}

	for _, s := range servers {
		fmt.Printf("%-20s %s (cli:%d webadmin:%d user:%s)\n",
			s.Name, s.Hostname, s.CLIPort, s.WebadminPort, s.Username)
	}
	return nil
}

func runServerRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	store, _, l, err := openStore()
	if err != nil {
		return err
	}

	srv, err := store.FindServerByName(ctx, name)
	if err != nil {
		return fmt.Errorf("server %q not found", name)
	}

	if !removeConfirm && !confirmRemoval(name) {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	if err := store.DeleteServer(ctx, srv.ID); err != nil {
		return err
	}

	l.Info("server removed with all mirrored data", zap.String("name", name))
	return nil
}

// readPassword reads the admin password without echo when attached to a
// terminal, and from stdin otherwise (piped invocations).
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		fmt.Print("Admin CLI password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func confirmRemoval(name string) bool {
	fmt.Printf("Remove server %q and all of its mirrored domains and accounts? Type 'yes' to confirm: ", name)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.ToLower(answer)) == "yes"
}
