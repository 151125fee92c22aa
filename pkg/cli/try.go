package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/routeval/pkg/cli/internal/output"
	"github.com/getmockd/routeval/pkg/cli/internal/parse"
	"github.com/getmockd/routeval/pkg/config"
	"github.com/getmockd/routeval/pkg/server"
)

// exitCodeHTTPError is returned by try --fail for responses >= 400, as
// curl --fail does.
const exitCodeHTTPError = 22

var (
	tryFile        string
	tryHeaders     []string
	tryData        string
	tryReply       string
	tryReplyStatus int
	tryFail        bool
)

var tryCmd = &cobra.Command{
	Use:   "try -f <file> <METHOD> <path>",
	Short: "Send one request through the route validators in-process",
	Long: `Build the routes from a route file or OpenAPI document and send a single
request through them without opening a port. The handler behind every route
echoes the validated params, query, headers and body, or sends the --reply
payload so a response schema can be exercised.

Examples:
  routeval try -f routes.yaml GET '/users?limit=10'
  routeval try -f routes.yaml POST /users -d '{"name":"ada"}'
  routeval try -f routes.yaml GET /users/1 --reply '{"id":"none"}'
  routeval try -f routes.yaml GET /users -H 'Authorization: Bearer x' --fail`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, target := strings.ToUpper(args[0]), args[1]
		if !strings.HasPrefix(target, "/") {
			return fmt.Errorf("path must start with /: %q", target)
		}

		header, err := parse.Header(tryHeaders)
		if err != nil {
			return err
		}

		opts := []server.Option{server.WithLogger(newLogger(cmd))}
		if tryReply != "" {
			var payload any
			if err := json.Unmarshal([]byte(tryReply), &payload); err != nil {
				return fmt.Errorf("invalid --reply JSON: %w", err)
			}
			opts = append(opts, server.WithHandler(server.Reply(tryReplyStatus, payload)))
		}

		routes, err := config.Load(tryFile)
		if err != nil {
			return err
		}
		srv, err := server.New(routes, opts...)
		if err != nil {
			return err
		}

		var body io.Reader = http.NoBody
		if tryData != "" {
			body = strings.NewReader(tryData)
			if header.Get("Content-Type") == "" {
				header.Set("Content-Type", "application/json")
			}
		}
		req, err := http.NewRequestWithContext(cmd.Context(), method, "http://routeval.local"+target, body)
		if err != nil {
			return err
		}
		req.Header = header

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if err := printTryResult(cmd.OutOrStdout(), rec); err != nil {
			return err
		}

		if tryFail && rec.Code >= 400 {
			return &exitError{code: exitCodeHTTPError}
		}
		return nil
	},
}

func printTryResult(w io.Writer, rec *httptest.ResponseRecorder) error {
	data := bytes.TrimSpace(rec.Body.Bytes())
	if jsonOutput {
		result := struct {
			Status int             `json:"status"`
			Body   json.RawMessage `json:"body,omitempty"`
		}{Status: rec.Code}
		if json.Valid(data) {
			result.Body = data
		}
		return output.JSON(w, result)
	}

	fmt.Fprintf(w, "%d %s\n", rec.Code, http.StatusText(rec.Code))
	if len(data) > 0 {
		fmt.Fprintf(w, "%s\n", data)
	}
	return nil
}

func init() {
	tryCmd.Flags().StringVarP(&tryFile, "file", "f", "", "Route file or OpenAPI document (path or URL)")
	tryCmd.Flags().StringArrayVarP(&tryHeaders, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	tryCmd.Flags().StringVarP(&tryData, "data", "d", "", "Request body")
	tryCmd.Flags().StringVar(&tryReply, "reply", "", "JSON payload the handler sends instead of the echo")
	tryCmd.Flags().IntVar(&tryReplyStatus, "reply-status", http.StatusOK, "Status sent with --reply")
	tryCmd.Flags().BoolVar(&tryFail, "fail", false, "Exit with status 22 when the response status is 400 or above")
	_ = tryCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(tryCmd)
}
