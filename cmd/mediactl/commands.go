// AngelaMos | 2026
// commands.go

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/mediahub/internal/auth"
	"github.com/carterperez-dev/mediahub/internal/client"
	"github.com/carterperez-dev/mediahub/internal/content"
)

const requestTimeout = 5 * time.Minute

type globals struct {
	server      string
	sessionPath string
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".mediactl-session.json"
	}
	return filepath.Join(dir, "mediactl", "session.json")
}

func newRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Command line client for the MediaHub API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.server, "server", "s",
		envOr("MEDIAHUB_URL", "http://localhost:8000"), "API base URL")
	root.PersistentFlags().StringVar(&g.sessionPath, "session",
		envOr("MEDIAHUB_SESSION", defaultSessionPath()), "session file")

	root.AddCommand(
		newLoginCommand(g),
		newRegisterCommand(g),
		newLogoutCommand(g),
		newWhoamiCommand(g),
		newContentCommand(g),
		newMediaCommand(g),
	)

	return root
}

func (g *globals) client() *client.Client {
	return client.New(g.server, client.WithHTTPClient(&http.Client{Timeout: requestTimeout}))
}

func (g *globals) session() (*client.Session, error) {
	s, err := client.LoadSession(g.sessionPath)
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired; run login again")
	}
	return s, nil
}

func newLoginCommand(g *globals) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.client().Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := s.Save(g.sessionPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.User.Email, s.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")    //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("password") //nolint:errcheck // flag exists

	return cmd
}

func newRegisterCommand(g *globals) *cobra.Command {
	var req auth.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.client().Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("register failed: %w", err)
			}
			if err := s.Save(g.sessionPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", s.User.Email, s.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "display name")
	cmd.Flags().StringVar(&req.Role, "role", "", "requested role (admin, editor, writer)")
	_ = cmd.MarkFlagRequired("email")    //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("password") //nolint:errcheck // flag exists
	_ = cmd.MarkFlagRequired("name")     //nolint:errcheck // flag exists

	return cmd
}

func newLogoutCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client.ClearSession(g.sessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}
			me, err := g.client().Me(cmd.Context(), s)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), me)
		},
	}
}

func newContentCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage content items",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List content, newest update first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}
			items, err := g.client().ListContent(cmd.Context(), s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total content: %d\n\n", len(items))
			for i, item := range items {
				fmt.Fprintf(out, "%d. %s [%s]\n", i+1, item.Title, item.Status)
				fmt.Fprintf(out, "   ID: %s\n", item.ID)
				fmt.Fprintf(out, "   Author: %s\n", item.Author.Name)
			}
			return nil
		},
	}

	var req content.CreateContentRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a content item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}
			item, err := g.client().CreateContent(cmd.Context(), s, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	create.Flags().StringVarP(&req.Title, "title", "t", "", "title")
	create.Flags().StringVarP(&req.Body, "body", "b", "", "body text")
	create.Flags().StringVar(&req.Status, "status", "", "draft, scheduled or published")
	create.Flags().StringSliceVar(&req.Tags, "tag", nil, "tag (repeatable)")
	_ = create.MarkFlagRequired("title") //nolint:errcheck // flag exists
	_ = create.MarkFlagRequired("body")  //nolint:errcheck // flag exists

	var (
		title, body, status string
		tags                []string
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch content.UpdateContentRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("body") {
				patch.Body = &body
			}
			if flags.Changed("status") {
				patch.Status = &status
			}
			if flags.Changed("tag") {
				patch.Tags = &tags
			}
			if patch == (content.UpdateContentRequest{}) {
				return fmt.Errorf("nothing to update")
			}

			s, err := g.session()
			if err != nil {
				return err
			}
			item, err := g.client().UpdateContent(cmd.Context(), s, args[0], patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
	update.Flags().StringVarP(&title, "title", "t", "", "new title")
	update.Flags().StringVarP(&body, "body", "b", "", "new body text")
	update.Flags().StringVar(&status, "status", "", "draft, scheduled or published")
	update.Flags().StringSliceVar(&tags, "tag", nil, "replacement tags (repeatable)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}
			if err := g.client().DeleteContent(cmd.Context(), s, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func newMediaCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Upload and list media assets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List media, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}
			assets, err := g.client().ListMedia(cmd.Context(), s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total assets: %d\n\n", len(assets))
			for i, a := range assets {
				fmt.Fprintf(out, "%d. %s (%s, %d bytes)\n", i+1, a.Name, a.Type, a.Size)
				fmt.Fprintf(out, "   URL: %s\n", a.URL)
			}
			return nil
		},
	}

	var mimeType string
	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close() //nolint:errcheck // read-only

			mt := mimeType
			if mt == "" {
				mt = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			asset, err := g.client().Upload(cmd.Context(), s, filepath.Base(args[0]), mt, f)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as %s\n", asset.Name, asset.Type)
			fmt.Fprintf(cmd.OutOrStdout(), "URL: %s\n", asset.URL)
			return nil
		},
	}
	upload.Flags().StringVar(&mimeType, "type", "", "MIME type (default: from extension)")

	cmd.AddCommand(list, upload)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
