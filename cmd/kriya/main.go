package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kriya/internal/app"
	"kriya/internal/config"
	"kriya/internal/db"
	"kriya/internal/domain"
	"kriya/internal/engine"
	"kriya/internal/ingest"
	"kriya/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "kriya",
	Short: "Kriya workshop job manager",
	Long: `Kriya manages the R&D job board of a craft workshop: tasks flowing
through per-category stage pipelines, the crew working them, the clients they
are for, and two side channels: a Google Sheets mirror of the task table and
an email webhook that turns SPK/SPD work orders into Inbox tasks.

Workspace state lives under .kriya/ next to kriya.yml.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("KRIYA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(crewCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default kriya.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			if secret := os.Getenv("KRIYA_JWT_SECRET"); secret != "" {
				cfg.Auth.JWTSecret = secret
			}
			a, err := app.Setup(cmd.Context(), workspace, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			handler, err := server.New(server.Config{
				App:      a,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Kriya API on %s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo crew, clients, and tasks into an empty workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				seeded, err := a.Engine.Seed(ctx)
				if err != nil {
					return err
				}
				if seeded {
					fmt.Println("seeded demo data")
				} else {
					fmt.Println("workspace not empty, nothing seeded")
				}
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tasks, err := a.Engine.ListTasks(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Client", "Category", "Stage", "Status", "Priority", "Assignee"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.ClientName, t.Category, t.Stage, t.Status, t.Priority, t.Assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func taskFieldsFlags(cmd *cobra.Command, f *engine.TaskFields) {
	cmd.Flags().StringVar(&f.Title, "title", "", "title")
	cmd.Flags().StringVar(&f.ClientName, "client", "", "client name")
	cmd.Flags().StringVar(&f.ProjectName, "project", "", "project name")
	cmd.Flags().StringVar(&f.Description, "description", "", "description")
	cmd.Flags().StringVar(&f.Status, "status", "", "status (To Do, In Progress, Review, Done)")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority (Low, Medium, High, Urgent)")
	cmd.Flags().StringVar(&f.Category, "category", "", "category (Produk, Interior, Motif, Drafter)")
	cmd.Flags().StringVar(&f.Stage, "stage", "", "pipeline stage")
	cmd.Flags().StringVar(&f.Assignee, "assignee", "", "assignee name")
	cmd.Flags().StringVar(&f.Deadline, "deadline", "", "deadline (YYYY-MM-DD)")
}

func taskAddCmd() *cobra.Command {
	var fields engine.TaskFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fields.Title == "" {
				return fmt.Errorf("--title required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.CreateTask(ctx, fields)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	taskFieldsFlags(cmd, &fields)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var fields engine.TaskFields
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Overwrite a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.UpdateTask(ctx, id, fields)
			})
		},
	}
	taskFieldsFlags(cmd, &fields)
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.DeleteTask(ctx, id)
			})
		},
	}
}

func crewCmd() *cobra.Command {
	crew := &cobra.Command{
		Use:   "crew",
		Short: "Manage crew members",
	}
	crew.AddCommand(crewListCmd())
	crew.AddCommand(crewAddCmd())
	crew.AddCommand(crewRemoveCmd())
	return crew
}

func crewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List crew",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				members, err := a.Engine.ListCrew(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(members)
				}
				now := time.Now()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Joined", "Tenure", "Performance"})
				for _, c := range members {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Role, c.JoinDate, c.Tenure(now), c.Performance})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func crewAddCmd() *cobra.Command {
	var member domain.CrewMember
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a crew member",
		RunE: func(cmd *cobra.Command, args []string) error {
			if member.Name == "" {
				return fmt.Errorf("--name required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.CreateCrew(ctx, member)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&member.Name, "name", "", "name")
	cmd.Flags().StringVar(&member.Role, "role", "", "role")
	cmd.Flags().StringVar(&member.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&member.Address, "address", "", "address")
	cmd.Flags().StringVar(&member.JoinDate, "join-date", "", "join date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&member.Performance, "performance", 0, "performance score")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func crewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a crew member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid crew id %q", args[0])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.DeleteCrew(ctx, id)
			})
		},
	}
}

func clientCmd() *cobra.Command {
	client := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}
	client.AddCommand(clientListCmd())
	client.AddCommand(clientAddCmd())
	return client
}

func clientListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				clients, err := a.Engine.ListClients(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(clients)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name"})
				for _, c := range clients {
					tw.AppendRow(table.Row{c.ID, c.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func clientAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a client (idempotent by name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.EnsureClient(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func settingsCmd() *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Manage settings",
	}
	spreadsheet := &cobra.Command{
		Use:   "spreadsheet",
		Short: "Target spreadsheet for the Sheets mirror",
	}
	spreadsheet.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the target spreadsheet id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				id, err := a.Engine.Repo.GetSetting(ctx, domain.SettingSpreadsheetID)
				if err != nil {
					return err
				}
				lastSync, err := a.Engine.Repo.GetSetting(ctx, domain.SettingLastSync)
				if err != nil {
					return err
				}
				tok, err := a.Mirror.Token(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"spreadsheetId": id,
					"isConnected":   tok != nil,
					"lastSync":      lastSync,
				})
			})
		},
	})
	spreadsheet.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Set the target spreadsheet id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.Repo.SetSetting(ctx, domain.SettingSpreadsheetID, strings.TrimSpace(args[0]))
			})
		},
	})
	settings.AddCommand(spreadsheet)
	return settings
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Mirror the task table to Google Sheets now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Mirror.Sync(ctx); err != nil {
					return err
				}
				lastSync, err := a.Engine.Repo.GetSetting(ctx, domain.SettingLastSync)
				if err != nil {
					return err
				}
				if lastSync == "" {
					fmt.Println("not connected or no spreadsheet configured, nothing mirrored")
				} else {
					fmt.Println("mirrored, last sync", lastSync)
				}
				return nil
			})
		},
	}
}

func ingestCmd() *cobra.Command {
	var from, subject, bodyFile string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Feed a work-order email through the webhook pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Ingest.Process(ctx, ingest.Message{
					From:    from,
					Subject: subject,
					Body:    string(body),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "path to the email body")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("body-file")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Audit log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Engine.Repo.LatestEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	a, err := app.Setup(ctx, workspace, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
