package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopscout/internal/api"
	"shopscout/internal/config"
	"shopscout/internal/db"
	"shopscout/internal/domain"
	"shopscout/internal/logger"
	"shopscout/internal/notify"
	"shopscout/internal/report"
	"shopscout/internal/repo"
	"shopscout/internal/server"
	"shopscout/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Shopscout CLI",
	Long: `Shopscout is a mystery-shopping marketplace client.
- Shoppers browse missions, apply, and track their assignments.
- Admins create missions, attach surveys, review reports, and chat
  with shoppers.
- A sandbox server ('scout serve') runs the whole API locally on SQLite
  for offline development.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		_ = godotenv.Load(filepath.Join(workspace, ".env"))
		cfg, err := config.Load(workspace)
		if err != nil {
			return err
		}
		level := viper.GetString("log-level")
		if level == "" {
			level = cfg.Log.Level
		}
		logger.Setup(level)
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
	viper.SetEnvPrefix("SHOPSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(surveyCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(notificationCmd())
	rootCmd.AddCommand(serveCmd())
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				res, err := c.Login(ctx, email, password)
				if err != nil {
					return err
				}
				if err := sess.Login(res.Data.User, res.Data.Token); err != nil {
					return err
				}
				fmt.Printf("Logged in as %s (%s)\n", res.Data.User.Name, res.Data.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := openSession()
			sess.Logout()
			fmt.Println("Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := openSession()
			if !sess.IsAuthenticated() {
				fmt.Println("Not logged in")
				return nil
			}
			return printJSONOrTable(sess.User())
		},
	}
}

func registerCmd() *cobra.Command {
	var name, email, password, role, phone, city string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				u, err := c.Register(ctx, domain.User{
					Name:  name,
					Email: email,
					Role:  role,
					Phone: phone,
					City:  city,
				}, password)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "shopper", "role (shopper, admin)")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&city, "city", "", "city")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage users"}
	usr.AddCommand(userShowCmd())
	usr.AddCommand(userUpdateCmd())
	return usr
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a user (defaults to the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				id := currentUserID(sess, args)
				if id == "" {
					return fmt.Errorf("no user id given and not logged in")
				}
				u, err := c.FetchUser(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func userUpdateCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update user fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				id := currentUserID(sess, args)
				if id == "" {
					return fmt.Errorf("no user id given and not logged in")
				}
				fields, err := parseSetFlags(sets)
				if err != nil {
					return err
				}
				u, err := c.PatchUser(ctx, id, fields)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field to set, key=value (repeatable)")
	return cmd
}

func missionCmd() *cobra.Command {
	msn := &cobra.Command{Use: "mission", Short: "Browse and manage missions"}
	msn.AddCommand(missionListCmd())
	msn.AddCommand(missionAllCmd())
	msn.AddCommand(missionGetCmd())
	msn.AddCommand(missionCreateCmd())
	msn.AddCommand(missionPatchCmd())
	msn.AddCommand(missionPutCmd())
	msn.AddCommand(missionApplyCmd())
	msn.AddCommand(missionAssignedCmd())
	msn.AddCommand(missionAssignCmd())
	return msn
}

func missionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List browsable missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				ms, err := c.FetchMissions(ctx)
				if err != nil {
					return err
				}
				return printMissions(ms)
			})
		},
	}
}

func missionAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List every mission (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				ms, err := c.FetchAdminMissions(ctx)
				if err != nil {
					return err
				}
				return printMissions(ms)
			})
		},
	}
}

func missionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				m, err := c.FetchMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func missionCreateCmd() *cobra.Command {
	var m domain.Mission
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				created, err := c.PostMission(ctx, m)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&m.Title, "title", "", "mission title")
	cmd.Flags().StringVar(&m.Description, "description", "", "description")
	cmd.Flags().StringVar(&m.Location, "location", "", "location")
	cmd.Flags().StringVar(&m.Category, "category", "", "category")
	cmd.Flags().StringVar(&m.Deadline, "deadline", "", "deadline (RFC3339)")
	cmd.Flags().Float64Var(&m.Reward, "reward", 0, "reward amount")
	cmd.Flags().StringVar(&m.BusinessName, "business", "", "business name")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func missionPatchCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "patch <id>",
		Short: "Update mission fields (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				fields, err := parseSetFlags(sets)
				if err != nil {
					return err
				}
				m, err := c.PatchMission(ctx, args[0], fields)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field to set, key=value (repeatable)")
	return cmd
}

func missionPutCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "put <id>",
		Short: "Replace a mission from a JSON file (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			var m domain.Mission
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("invalid mission json: %w", err)
			}
			m.ID = args[0]
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				updated, err := c.PutMission(ctx, m)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to mission JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func missionApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <missionId>",
		Short: "Apply for a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				u := sess.User()
				if u == nil {
					return fmt.Errorf("login required to apply")
				}
				app, err := c.Apply(ctx, args[0], u.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(app)
			})
		},
	}
}

func missionAssignedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assigned [userId]",
		Short: "List missions assigned to a user (defaults to the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				id := currentUserID(sess, args)
				if id == "" {
					return fmt.Errorf("no user id given and not logged in")
				}
				ms, err := c.FetchAssignments(ctx, id)
				if err != nil {
					return err
				}
				return printMissions(ms)
			})
		},
	}
}

func missionAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <userId> <missionId>",
		Short: "Assign a mission to a user (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				ack, err := c.PostAssignment(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(ack.Message)
				return nil
			})
		},
	}
}

func surveyCmd() *cobra.Command {
	srv := &cobra.Command{Use: "survey", Short: "Manage mission surveys (admin)"}
	srv.AddCommand(surveySaveCmd())
	srv.AddCommand(surveyShowCmd())
	return srv
}

func surveySaveCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "save <missionId>",
		Short: "Attach survey questions from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			var questions []domain.SurveyQuestion
			if err := json.Unmarshal(data, &questions); err != nil {
				return fmt.Errorf("invalid questions json: %w", err)
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				ack, err := c.SaveSurvey(ctx, args[0], questions)
				if err != nil {
					return err
				}
				fmt.Println(ack.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to questions JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func surveyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <missionId>",
		Short: "Show a mission's survey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				s, err := c.FetchSurvey(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Review submitted reports"}
	rep.AddCommand(reportListCmd())
	rep.AddCommand(reportShowCmd())
	rep.AddCommand(reportStatsCmd())
	return rep
}

func reportFilterFlags(cmd *cobra.Command, f *report.Filters) {
	cmd.Flags().StringVar(&f.Status, "status", "all", "status filter")
	cmd.Flags().StringVar(&f.MissionID, "mission", "", "mission id filter")
	cmd.Flags().StringVar(&f.UserID, "user", "", "user id filter")
	cmd.Flags().StringVar(&f.DateFrom, "from", "", "earliest submission date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.DateTo, "to", "", "latest submission date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.SortBy, "sort", "", "sort field (submitted_at, status, mission_id)")
	cmd.Flags().BoolVar(&f.Ascending, "asc", false, "sort ascending")
}

func reportListCmd() *cobra.Command {
	var filters report.Filters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				rs, err := c.FetchReports(ctx)
				if err != nil {
					return err
				}
				rs = report.FilterAndSort(rs, filters)
				if viper.GetBool("json") {
					return printJSON(rs)
				}
				t := newTable("ID", "MISSION", "USER", "STATUS", "SUBMITTED")
				for _, r := range rs {
					t.AppendRow(table.Row{r.ID, missionLabel(r), r.UserName, r.Status, r.SubmittedAt})
				}
				t.Render()
				return nil
			})
		},
	}
	reportFilterFlags(cmd, &filters)
	return cmd
}

func reportShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reportId>",
		Short: "Show a normalized report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				rs, err := c.FetchReports(ctx)
				if err != nil {
					return err
				}
				var target *domain.Report
				for i := range rs {
					if rs[i].ID == args[0] {
						target = &rs[i]
						break
					}
				}
				if target == nil {
					return fmt.Errorf("report %s not found", args[0])
				}
				var questions []domain.SurveyQuestion
				if s, err := c.FetchSurvey(ctx, target.MissionID); err == nil {
					questions = s.Questions
				}
				normalized := report.Normalize(*target, questions)
				if viper.GetBool("json") {
					return printJSON(normalized)
				}
				printNormalized(normalized)
				return nil
			})
		},
	}
}

func reportStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate report statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				rs, err := c.FetchReports(ctx)
				if err != nil {
					return err
				}
				stats := report.Statistics(rs)
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				fmt.Printf("Total reports: %d\n\n", stats.Total)
				t := newTable("STATUS", "COUNT")
				for status, n := range stats.ByStatus {
					t.AppendRow(table.Row{status, n})
				}
				t.Render()
				fmt.Println()
				t = newTable("MISSION", "COUNT")
				for mission, n := range stats.ByMission {
					t.AppendRow(table.Row{mission, n})
				}
				t.Render()
				fmt.Println()
				t = newTable("RECENT", "STATUS", "SUBMITTED")
				for _, r := range stats.Recent {
					t.AppendRow(table.Row{r.ID, r.Status, r.SubmittedAt})
				}
				t.Render()
				return nil
			})
		},
	}
}

func messageCmd() *cobra.Command {
	msg := &cobra.Command{Use: "message", Short: "Chat and unread counters"}
	msg.AddCommand(messageListCmd())
	msg.AddCommand(messageSendCmd())
	msg.AddCommand(messageCountCmd())
	msg.AddCommand(messageMarkReadCmd())
	msg.AddCommand(messageWatchCmd())
	return msg
}

func messageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <userId>",
		Short: "List the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				msgs, err := c.FetchMessages(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(msgs)
				}
				t := newTable("FROM", "BODY", "READ", "SENT")
				for _, m := range msgs {
					t.AppendRow(table.Row{m.FromID, m.Body, m.Read, m.CreatedAt})
				}
				t.Render()
				return nil
			})
		},
	}
}

func messageSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <userId> <body>...",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				m, err := c.PostMessage(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func messageCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [userId]",
		Short: "Unread message count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				userID := ""
				if len(args) == 1 {
					userID = args[0]
				}
				n, err := c.UnreadCount(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Println(n)
				return nil
			})
		},
	}
}

func messageMarkReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <userId>",
		Short: "Mark a user's messages as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				res, err := c.MarkRead(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Marked %d message(s) as read\n", res.Data.Marked)
				return nil
			})
		},
	}
}

func messageWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the unread counter until interrupted (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, sess *session.Store) error {
				if interval == 0 {
					cfg, err := config.Load(viper.GetString("workspace"))
					if err != nil {
						return err
					}
					interval = cfg.Notify.PollInterval
				}
				store := notify.NewStore(c, sess, interval)
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := store.StartPolling(ctx); err != nil {
					return err
				}
				defer store.StopPolling()
				fmt.Printf("Watching unread messages every %s (ctrl-c to stop)\n", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				last := -1
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if n := store.Count(); n != last {
							fmt.Printf("Unread: %d\n", n)
							last = n
						}
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (defaults to config)")
	return cmd
}

func notificationCmd() *cobra.Command {
	ntf := &cobra.Command{Use: "notification", Short: "Manage notifications"}
	ntf.AddCommand(notificationListCmd())
	ntf.AddCommand(notificationAddCmd())
	ntf.AddCommand(notificationReadCmd())
	return ntf
}

func notificationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				ns, err := c.FetchNotifications(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ns)
				}
				t := newTable("ID", "KIND", "BODY", "READ", "CREATED")
				for _, n := range ns {
					t.AppendRow(table.Row{n.ID, n.Kind, n.Body, n.Read, n.CreatedAt})
				}
				t.Render()
				return nil
			})
		},
	}
}

func notificationAddCmd() *cobra.Command {
	var n domain.Notification
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				created, err := c.PostNotification(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&n.Body, "body", "", "notification body")
	cmd.Flags().StringVar(&n.Kind, "kind", "", "notification kind")
	cmd.Flags().StringVar(&n.UserID, "user", "", "target user (admin, defaults to you)")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func notificationReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *api.Client, _ *session.Store) error {
				n, err := c.PatchNotification(ctx, args[0], map[string]any{"read": true})
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sandbox API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Sandbox.Addr
			}
			if basePath == "" {
				basePath = cfg.Sandbox.BasePath
			}
			secret := os.Getenv("SHOPSCOUT_JWT_SECRET")
			if secret == "" {
				secret = cfg.Sandbox.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("SHOPSCOUT_JWT_SECRET is required for bearer auth")
			}
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			if seed {
				if err := seedDemoUsers(cmd.Context(), r); err != nil {
					return err
				}
			}
			handler, err := server.New(server.Config{
				Repo:     r,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Shopscout sandbox API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed demo accounts (admin@example.com / shopper@example.com)")
	return cmd
}

func seedDemoUsers(ctx context.Context, r repo.Repo) error {
	demo := []struct {
		user     domain.User
		password string
	}{
		{domain.User{ID: "demo-admin", Name: "Demo Admin", Email: "admin@example.com", Role: "admin", CreatedAt: time.Now().UTC().Format(time.RFC3339)}, "admin"},
		{domain.User{ID: "demo-shopper", Name: "Demo Shopper", Email: "shopper@example.com", Role: "shopper", CreatedAt: time.Now().UTC().Format(time.RFC3339)}, "shopper"},
	}
	for _, d := range demo {
		err := r.InsertUser(ctx, d.user, repo.HashPassword(d.password))
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "unique") {
			return err
		}
	}
	return nil
}

// --- helpers ---

func openSession() *session.Store {
	sess := session.NewStore(viper.GetString("workspace"))
	sess.Load()
	return sess
}

func withClient(ctx context.Context, fn func(context.Context, *api.Client, *session.Store) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	baseURL := viper.GetString("base-url")
	if baseURL == "" {
		baseURL = cfg.API.BaseURL
	}
	sess := openSession()
	c := api.New(baseURL)
	c.Timeout = cfg.API.Timeout
	c.HTTPClient.Timeout = cfg.API.Timeout
	c.Token = sess.Token
	return fn(ctx, c, sess)
}

func currentUserID(sess *session.Store, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	if u := sess.User(); u != nil {
		return u.ID
	}
	return ""
}

// parseSetFlags turns repeated key=value flags into a patch body. Values that
// parse as numbers or booleans are sent as such.
func parseSetFlags(sets []string) (map[string]any, error) {
	fields := make(map[string]any, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", s)
		}
		switch {
		case value == "true" || value == "false":
			fields[key] = value == "true"
		default:
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				fields[key] = n
			} else {
				fields[key] = value
			}
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one --set key=value is required")
	}
	return fields, nil
}

func newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row(headers))
	t.SetStyle(table.StyleLight)
	return t
}

func missionLabel(r domain.Report) string {
	if r.MissionTitle != "" {
		return r.MissionTitle
	}
	return r.MissionID
}

func printMissions(ms []domain.Mission) error {
	if viper.GetBool("json") {
		return printJSON(ms)
	}
	t := newTable("ID", "TITLE", "BUSINESS", "REWARD", "STATUS", "ASSIGNED")
	for _, m := range ms {
		t.AppendRow(table.Row{m.ID, m.Title, m.BusinessName, m.Reward, m.Status, len(m.AssignedTo)})
	}
	t.Render()
	return nil
}

func printNormalized(n report.Normalized) {
	s := n.Summary
	fmt.Printf("%s / %s (%s)\n", s.MissionTitle, s.UserName, s.Status)
	fmt.Printf("Submitted %s, %d/%d answered (%d%%)\n\n", s.SubmittedAt, s.Answered, s.Total, s.CompletionRate)
	t := newTable("QUESTION", "TYPE", "VALUE", "BADGE")
	for _, sec := range n.Sections {
		value := sec.Display.Value
		if sec.Display.Stars != "" {
			value = sec.Display.Stars + " " + value
		}
		t.AppendRow(table.Row{sec.Question, sec.Type, value, sec.Display.Badge})
	}
	t.Render()
	for _, w := range n.Warnings {
		fmt.Println("warning:", w)
	}
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
