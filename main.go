package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/authgate/authgate/config"
	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/common"
	"github.com/authgate/authgate/util/crypto"
	"github.com/authgate/authgate/web"
	"github.com/authgate/authgate/web/cache"
	"github.com/authgate/authgate/web/service"

	"github.com/spf13/cobra"
)

func initLogger() {
	level, err := logger.ParseLevel(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func initDB() error {
	return database.InitDB(config.GetDatabaseConfig())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()
	defer logger.CloseLogger()

	if err := config.Validate(); err != nil {
		log.Fatal(err)
	}
	if err := initDB(); err != nil {
		log.Fatal(err)
	}
	defer database.CloseDB()
	defer func() { _ = cache.Close() }()

	if seedFile := config.GetSeedFile(); seedFile != "" {
		seedUsers(seedFile)
	}

	server := web.NewServer()
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			if err := common.Combine(server.Stop(), cache.Close()); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func seedUsers(path string) {
	created, err := database.SeedUsers(path, crypto.NewBcrypt(config.GetBcryptCost()))
	if err != nil {
		fmt.Println("seed users failed:", err)
		return
	}
	fmt.Printf("seed users: %d account(s) created\n", created)
}

func listUsers() {
	users, err := service.NewUserService(database.GetDB()).List(context.Background())
	if err != nil {
		fmt.Println("list users failed:", err)
		return
	}
	fmt.Printf("%-6s %-40s %-6s %s\n", "ID", "EMAIL", "ADMIN", "CREATED")
	for _, u := range users {
		fmt.Printf("%-6d %-40s %-6v %s\n", u.Id, u.Email, u.IsAdmin, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func showSetting() {
	dbConfig := config.GetDatabaseConfig()
	fmt.Println("current settings as follows:")
	fmt.Println("listen:", config.GetListen())
	fmt.Println("port:", config.GetPort())
	fmt.Println("database:", dbConfig.Type)
	fmt.Println("session store:", config.GetSessionStore())
	fmt.Println("session cookie:", config.GetSessionCookieName())
	fmt.Println("session max age (minutes):", config.GetSessionMaxAge())
	fmt.Println("cookie secure:", config.IsCookieSecure())
	fmt.Println("bcrypt cost:", config.GetBcryptCost())
	fmt.Println("session secret set:", os.Getenv("AUTHGATE_SESSION_SECRET") != "")
	if err := config.Validate(); err != nil {
		fmt.Println("invalid configuration:", err)
	}
}

// withDB opens the database for one CLI command.
func withDB(fn func()) {
	if err := initDB(); err != nil {
		fmt.Println(err)
		return
	}
	defer database.CloseDB()
	fn()
}

func main() {
	config.LoadEnv()

	var rootCmd = &cobra.Command{
		Use:   config.GetName(),
		Short: "Session authentication server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(func() { fmt.Println("migrate success") })
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(listUsers)
		},
	}

	var seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the accounts of a YAML or JSON seed file",
		Run: func(cmd *cobra.Command, args []string) {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				file = config.GetSeedFile()
			}
			if file == "" {
				fmt.Println("no seed file given")
				return
			}
			withDB(func() { seedUsers(file) })
		},
	}
	seedCmd.Flags().String("file", "", "seed file path (.yaml, .yml or .json)")

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Inspect settings",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetVersion())
		},
	}

	userCmd.AddCommand(listCmd, seedCmd)
	settingCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runCmd, migrateCmd, userCmd, settingCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
