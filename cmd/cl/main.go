package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"careline/internal/config"
	"careline/internal/db"
	"careline/internal/domain"
	"careline/internal/engine"
	"careline/internal/events"
	"careline/internal/migrate"
	"careline/internal/repo"
	"careline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Careline CLI",
	Long: `Careline schedules and tracks customer care for a sales team.
Signing a contract generates its care tasks (onboarding, first lesson, periodic
touchpoints); agents complete them with contact reports, failed contacts are
rescheduled, and every contract keeps a merged care timeline.`,
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
	viper.SetEnvPrefix("CARELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting agent identifier")
	rootCmd.PersistentFlags().String("as-role", domain.RoleAgent, "acting role (agent, manager, director)")
	rootCmd.PersistentFlags().String("team", "", "acting team id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("as-role", rootCmd.PersistentFlags().Lookup("as-role"))
	_ = viper.BindPFlag("team", rootCmd.PersistentFlags().Lookup("team"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(carelogCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func principalFromFlags() domain.Principal {
	return domain.Principal{
		ID:     viper.GetString("actor-id"),
		Role:   viper.GetString("as-role"),
		TeamID: viper.GetString("team"),
	}
}

func contractCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "contract", Short: "Manage contracts"}
	cmd.AddCommand(contractCreateCmd())
	cmd.AddCommand(contractListCmd())
	cmd.AddCommand(contractShowCmd())
	cmd.AddCommand(contractUpdateCmd())
	return cmd
}

func contractCreateCmd() *cobra.Command {
	var in engine.ContractInput
	var start, onboarding, firstLesson string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Sign a contract and generate its care schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var err error
				if in.StartDate, err = parseDate(start); err != nil {
					return err
				}
				if onboarding != "" {
					if in.OnboardingDate, err = parseDate(onboarding); err != nil {
						return err
					}
				}
				if firstLesson != "" {
					if in.FirstLessonDate, err = parseDate(firstLesson); err != nil {
						return err
					}
				}
				c, tasks, err := e.CreateContract(ctx, principalFromFlags(), in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"contract": c, "tasks": tasks})
				}
				fmt.Printf("contract %s (%s) created, %d care tasks generated\n", c.ContractNo, c.ID, len(tasks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.ContractNo, "no", "", "contract number (generated if empty)")
	cmd.Flags().StringVar(&in.ParentName, "parent", "", "parent name")
	cmd.Flags().StringVar(&in.StudentName, "student", "", "student name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&in.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&in.LineID, "line", "", "LINE id")
	cmd.Flags().StringVar(&in.Product, "product", "", "product code")
	cmd.Flags().StringVar(&in.Kind, "kind", "new", "contract kind (new, renewal)")
	cmd.Flags().StringVar(&in.PaymentMethod, "payment", "", "payment method")
	cmd.Flags().StringVar(&in.Source, "source", "", "acquisition source")
	cmd.Flags().StringVar(&start, "start", "", "anchor date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&onboarding, "onboarding", "", "onboarding care date (defaults to anchor)")
	cmd.Flags().StringVar(&firstLesson, "first-lesson", "", "first lesson care date (defaults per config)")
	cmd.Flags().StringVar(&in.Note, "note", "", "free-text note")
	return cmd
}

func contractListCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListContracts(ctx, principalFromFlags(), status, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "No", "Student", "Owner", "Status", "Start", "Tags"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.ContractNo, c.StudentName, c.OwnerID, c.Status, c.StartDate.Format("2006-01-02"), tagSummary(c)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (active, risk, finished)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func contractShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, err := e.GetContract(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrIndent(c)
			})
		},
	}
	return cmd
}

func contractUpdateCmd() *cobra.Command {
	var phone, email, line, note, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update contact info or lifecycle status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var u engine.ContractUpdate
				if cmd.Flags().Changed("phone") {
					u.Phone = &phone
				}
				if cmd.Flags().Changed("email") {
					u.Email = &email
				}
				if cmd.Flags().Changed("line") {
					u.LineID = &line
				}
				if cmd.Flags().Changed("note") {
					u.Note = &note
				}
				if cmd.Flags().Changed("status") {
					u.Status = &status
				}
				c, err := e.UpdateContract(ctx, principalFromFlags(), args[0], u)
				if err != nil {
					return err
				}
				return printJSONOrIndent(c)
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&line, "line", "", "LINE id")
	cmd.Flags().StringVar(&note, "note", "", "free-text note")
	cmd.Flags().StringVar(&status, "status", "", "lifecycle status (active, risk, finished)")
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage care tasks"}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskCompleteCmd())
	return cmd
}

func taskListCmd() *cobra.Command {
	var q engine.TaskQuery
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible care tasks (pending by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if !all && q.Status == "" {
					q.Status = "pending"
				}
				tasks, err := e.ListTasks(ctx, principalFromFlags(), q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				loc, err := e.Config.Location()
				if err != nil {
					return err
				}
				now := e.Now()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Client", "Kind", "Title", "Due", "State"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.ClientName, t.Kind, t.Title, t.DueDate.Format("2006-01-02"), engine.Classify(t, now, loc)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.ContractID, "contract", "", "contract id filter")
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter (pending, completed)")
	cmd.Flags().StringVar(&q.Kind, "kind", "", "kind filter")
	cmd.Flags().IntVar(&q.DueWithinDays, "due-within", 0, "only tasks due within N days")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "max rows")
	cmd.Flags().BoolVar(&all, "all", false, "include completed tasks")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var in engine.TaskInput
	var due string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ad-hoc care task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var err error
				if in.DueDate, err = parseDate(due); err != nil {
					return err
				}
				t, err := e.CreateAdHocTask(ctx, principalFromFlags(), in)
				if err != nil {
					return err
				}
				return printJSONOrIndent(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.ContractID, "contract", "", "contract id")
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.Note, "note", "", "free-text note")
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	var rep engine.CompletionReport
	var next string
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Resolve a contact report against a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if next != "" {
					d, err := parseDate(next)
					if err != nil {
						return err
					}
					rep.NextContactDate = &d
				}
				t, err := e.CompleteTask(ctx, principalFromFlags(), args[0], rep)
				if err != nil {
					return err
				}
				return printJSONOrIndent(t)
			})
		},
	}
	cmd.Flags().StringVar(&rep.Outcome, "outcome", "", "contact outcome (connected, no_answer, busy)")
	cmd.Flags().StringVar(&rep.ServiceTag, "service", "", "service tag (normal, needs_help, complaint)")
	cmd.Flags().StringVar(&rep.Note, "note", "", "contact note")
	cmd.Flags().StringVar(&next, "next", "", "next contact date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&rep.SuppressFollowUp, "no-follow-up", false, "do not create a follow-up task")
	cmd.Flags().BoolVar(&rep.RenewalLikely, "renewal-likely", false, "tag contract as renewal likely")
	cmd.Flags().BoolVar(&rep.ReferralLikely, "referral-likely", false, "tag contract as referral likely")
	return cmd
}

func carelogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "carelog", Short: "Manual contact records"}
	cmd.AddCommand(carelogAddCmd())
	cmd.AddCommand(carelogListCmd())
	return cmd
}

func carelogAddCmd() *cobra.Command {
	var in engine.CareLogInput
	var occurred string
	cmd := &cobra.Command{
		Use:   "add <contract-id>",
		Short: "Record a manual contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				in.ContractID = args[0]
				if occurred != "" {
					d, err := parseDate(occurred)
					if err != nil {
						return err
					}
					in.OccurredAt = d
				}
				l, err := e.AddCareLog(ctx, principalFromFlags(), in)
				if err != nil {
					return err
				}
				return printJSONOrIndent(l)
			})
		},
	}
	cmd.Flags().StringVar(&occurred, "on", "", "contact date (YYYY-MM-DD, defaults to now)")
	cmd.Flags().StringVar(&in.Outcome, "outcome", "", "contact outcome (connected, no_answer, busy)")
	cmd.Flags().StringVar(&in.Content, "content", "", "what was said")
	cmd.Flags().BoolVar(&in.RenewalLikely, "renewal-likely", false, "tag contract as renewal likely")
	cmd.Flags().BoolVar(&in.ReferralLikely, "referral-likely", false, "tag contract as referral likely")
	return cmd
}

func carelogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <contract-id>",
		Short: "List care logs of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				logs, err := e.ListCareLogs(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrIndent(logs)
			})
		},
	}
	return cmd
}

func timelineCmd() *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "timeline <contract-id>",
		Short: "Merged care history of a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				entries, err := e.Timeline(ctx, args[0], order)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Date", "Source", "Kind", "Status", "Outcome", "Content"})
				for _, entry := range entries {
					tw.AppendRow(table.Row{entry.Date.Format("2006-01-02"), entry.Source, entry.Kind, entry.Status, entry.Outcome, entry.Content})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&order, "order", engine.OldestFirst, "asc (oldest first) or desc")
	return cmd
}

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agent", Short: "Manage agents and API keys"}
	cmd.AddCommand(agentAddCmd())
	cmd.AddCommand(agentListCmd())
	cmd.AddCommand(agentKeyCmd())
	return cmd
}

func agentAddCmd() *cobra.Command {
	var name, role, team string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				a := domain.Agent{ID: args[0], Name: name, Role: role, TeamID: team, CreatedAt: time.Now()}
				if err := r.InsertAgent(ctx, a); err != nil {
					return err
				}
				return printJSONOrIndent(a)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", domain.RoleAgent, "role (agent, manager, director)")
	cmd.Flags().StringVar(&team, "team", "", "team id")
	return cmd
}

func agentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				agents, err := r.ListAgents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(agents)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Team"})
				for _, a := range agents {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Role, a.TeamID})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func agentKeyCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "key <agent-id>",
		Short: "Issue an API key for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetAgent(ctx, args[0]); err != nil {
					return err
				}
				raw := "ck_" + uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					AgentID:   args[0],
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now(),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				// The raw key is shown once and only its hash is stored.
				fmt.Println(raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Event journal"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var f events.Filters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Read recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if f.Limit == 0 {
					f.Limit = 20
				}
				items, err := e.Events.List(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrIndent(items)
			})
		},
	}
	cmd.Flags().StringVar(&f.ContractID, "contract", "", "contract id filter")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().Int64Var(&f.AfterID, "after", 0, "only events after this id")
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default careline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrIndent(cfg)
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("CARELINE_JWT_SECRET"),
				AllowLegacyAgentHeader: os.Getenv("CARELINE_ALLOW_LEGACY_AGENT_HEADER") == "1",
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("CARELINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Careline API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8823", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func parseDate(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, fmt.Errorf("a date is required (YYYY-MM-DD)")
	}
	d, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", v)
	}
	return d, nil
}

func tagSummary(c domain.Contract) string {
	var tags []string
	if c.RenewalLikely {
		tags = append(tags, "renewal")
	}
	if c.ReferralLikely {
		tags = append(tags, "referral")
	}
	return strings.Join(tags, ",")
}

func printJSONOrIndent(v any) error {
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
