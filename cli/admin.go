package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xiaot623/formdesk/internal/console"
	"github.com/xiaot623/formdesk/internal/domain"
	"github.com/xiaot623/formdesk/internal/policy"
	"github.com/xiaot623/formdesk/internal/responses"
)

var (
	responsesPage  int
	responsesSort  string
	responsesOrder string
	outputPath     string
)

var surveysCmd = &cobra.Command{
	Use:   "surveys",
	Short: "List surveys with their status and responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, err := newPolicyEngine(ctx)
		if err != nil {
			return err
		}
		rows, err := console.NewSurveys(newAPIClient(), engine, logger).Rows(ctx)
		if err != nil {
			return errors.New(console.MsgLoadSurveysFailed)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UUID\tNAME\tCREATED\tSTATUS\tDELIVERY\tACTION\tRESPONSES\tCOMPLETION\tURL")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				r.UUID, r.Name, r.CreatedOn, r.ParseStatus, r.DeliveryStatus, r.Action,
				r.CompletedResponses, r.CompletionRate, r.PublicURL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, r := range rows {
			if r.ErrorLog != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", r.Name, r.ErrorLog)
			}
		}
		return nil
	},
}

var launchCmd = &cobra.Command{
	Use:   "launch <survey_uuid>",
	Short: "Launch a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyAction(cmd.Context(), args[0], policy.ActionStart)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <survey_uuid>",
	Short: "Stop a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyAction(cmd.Context(), args[0], policy.ActionStop)
	},
}

// applyAction runs the start or stop row action on a survey.
func applyAction(ctx context.Context, surveyUUID string, action policy.Action) error {
	engine, err := newPolicyEngine(ctx)
	if err != nil {
		return err
	}
	if msg, err := console.NewSurveys(newAPIClient(), engine, logger).Apply(ctx, surveyUUID, action); err != nil {
		return errors.New(msg)
	}
	status, _ := action.Target()
	fmt.Printf("Survey %s is now %s\n", surveyUUID, status)
	return nil
}

var responsesCmd = &cobra.Command{
	Use:   "responses <survey_uuid>",
	Short: "List one page of a survey's responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := responses.NewExplorer(newAPIClient(), args[0], logger)
		if err := e.FetchPage(cmd.Context(), responsesPage, responsesSort, domain.SortOrder(responsesOrder)); err != nil {
			return errors.New(e.ErrorMessage())
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UUID\tSTATUS\tSTARTED\tCOMPLETED\tWEBHOOK")
		for _, r := range e.TableRows() {
			webhook := ""
			if r.WebhookStatus != 0 {
				webhook = fmt.Sprint(r.WebhookStatus)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.UUID, r.Status, r.StartedAt, r.CompletedAt, webhook)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if e.ShowPagination() {
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d\n", e.Page(), e.PagesCount())
		}
		return nil
	},
}

var viewCmd = &cobra.Command{
	Use:   "view <survey_uuid> <session_uuid>",
	Short: "Show the answers of one response",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := responses.NewExplorer(newAPIClient(), args[0], logger)
		survey, session, err := e.Find(cmd.Context(), args[1])
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("response %s not found", args[1])
		}
		if err != nil {
			return errors.New(e.ErrorMessage())
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "QUESTION ID\tQUESTION\tRESPONSE")
		for _, row := range responses.View(survey, *session) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", row.QuestionID, row.QuestionLabel, row.Response)
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <survey_uuid> <session_uuid>",
	Short: "Delete one response",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := responses.NewExplorer(newAPIClient(), args[0], logger)
		if err := e.Delete(cmd.Context(), args[1]); err != nil {
			return errors.New(e.ErrorMessage())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted response %s\n", args[1])
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <survey_uuid>",
	Short: "Export every response of a survey as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := responses.NewExplorer(newAPIClient(), args[0], logger)
		return writeFile(outputPath, func(f *os.File) error {
			if err := e.Export(cmd.Context(), f); err != nil {
				return errors.New(e.ErrorMessage())
			}
			return nil
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <survey_uuid> <file_path>",
	Short: "Download a file uploaded as an answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := responses.NewExplorer(newAPIClient(), args[0], logger)
		out := outputPath
		if out == "" {
			out = responses.FileName(args[1])
		}
		return writeFile(out, func(f *os.File) error {
			if err := e.Download(cmd.Context(), args[1], f); err != nil {
				return errors.New(e.ErrorMessage())
			}
			return nil
		})
	},
}

// writeFile creates path, fills it and removes it again when fill fails.
func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
