package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
)

type issueView struct {
	ID         string         `json:"_id" jsonschema:"Issue identifier"`
	Title      string         `json:"issue_title"`
	Text       string         `json:"issue_text"`
	CreatedBy  string         `json:"created_by"`
	AssignedTo string         `json:"assigned_to"`
	StatusText string         `json:"status_text"`
	CreatedOn  string         `json:"created_on" jsonschema:"Creation time (RFC 3339)"`
	UpdatedOn  string         `json:"updated_on" jsonschema:"Last update time (RFC 3339)"`
	Open       bool           `json:"open"`
	Extra      map[string]any `json:"extra,omitempty" jsonschema:"Fields outside the issue schema set by updates"`
}

func newIssueView(iss *issue.Issue) issueView {
	return issueView{
		ID:         iss.ID,
		Title:      iss.Title,
		Text:       iss.Text,
		CreatedBy:  iss.CreatedBy,
		AssignedTo: iss.AssignedTo,
		StatusText: iss.StatusText,
		CreatedOn:  iss.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedOn:  iss.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Open:       iss.Open,
		Extra:      iss.Extra,
	}
}

type issueCreateInput struct {
	Project    string `json:"project" jsonschema:"Project the issue belongs to"`
	Title      string `json:"issue_title,omitempty" jsonschema:"Issue title (required)"`
	Text       string `json:"issue_text,omitempty" jsonschema:"Issue description (required)"`
	CreatedBy  string `json:"created_by,omitempty" jsonschema:"Reporter name (required)"`
	AssignedTo string `json:"assigned_to,omitempty"`
	StatusText string `json:"status_text,omitempty"`
}

type issueListInput struct {
	Project string         `json:"project" jsonschema:"Project to list"`
	Filters map[string]any `json:"filters,omitempty" jsonschema:"Field values every returned issue must equal, e.g. {\"open\": true}"`
}

type issueListOutput struct {
	Issues []issueView `json:"issues"`
	Count  int         `json:"count"`
}

type issueUpdateInput struct {
	Project string         `json:"project"`
	ID      string         `json:"_id,omitempty" jsonschema:"Issue to update"`
	Fields  map[string]any `json:"fields,omitempty" jsonschema:"Fields to merge into the issue; unknown keys are stored as extra fields"`
}

type issueDeleteInput struct {
	Project string `json:"project"`
	ID      string `json:"_id,omitempty" jsonschema:"Issue to delete"`
}

type resultOutput struct {
	Result string `json:"result"`
	ID     string `json:"_id"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "issue_create",
		Description: "Create an open issue in a project. issue_title, issue_text and created_by are required.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issueCreateInput) (*mcp.CallToolResult, issueView, error) {
		done := s.track(ctx, "issue_create")

		created, err := s.store.Create(ctx, args.Project, issue.NewIssue{
			Title:      args.Title,
			Text:       args.Text,
			CreatedBy:  args.CreatedBy,
			AssignedTo: args.AssignedTo,
			StatusText: args.StatusText,
		})
		done(err)
		if err != nil {
			return nil, issueView{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Created issue %s in %s", created.ID, args.Project)},
			},
		}, newIssueView(created), nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "issue_list",
		Description: "List a project's issues in creation order, optionally filtered by exact field values",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issueListInput) (*mcp.CallToolResult, issueListOutput, error) {
		done := s.track(ctx, "issue_list")

		issues := s.store.List(ctx, args.Project, issue.Filters(args.Filters))
		out := issueListOutput{Issues: make([]issueView, 0, len(issues)), Count: len(issues)}
		for i := range issues {
			out.Issues = append(out.Issues, newIssueView(&issues[i]))
		}
		done(nil)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d issues in %s", out.Count, args.Project)},
			},
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "issue_update",
		Description: "Merge fields into an issue. Set open to false to close it.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issueUpdateInput) (*mcp.CallToolResult, resultOutput, error) {
		done := s.track(ctx, "issue_update")

		res, err := s.store.Update(ctx, args.Project, args.ID, issue.Fields(args.Fields))
		done(err)
		if err != nil {
			return nil, resultOutput{}, err
		}
		return nil, resultOutput{Result: res.Result, ID: res.ID}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "issue_delete",
		Description: "Delete an issue from a project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issueDeleteInput) (*mcp.CallToolResult, resultOutput, error) {
		done := s.track(ctx, "issue_delete")

		res, err := s.store.Delete(ctx, args.Project, args.ID)
		done(err)
		if err != nil {
			return nil, resultOutput{}, err
		}
		return nil, resultOutput{Result: res.Result, ID: res.ID}, nil
	})
}

// track starts metrics for one tool call and returns the func that ends it.
func (s *Server) track(ctx context.Context, tool string) func(error) {
	done := s.metrics.start(ctx, tool)
	return func(err error) {
		done(err)
		if err != nil {
			s.logger.Debug("tool call rejected", zap.String("tool", tool), zap.Error(err))
		}
	}
}
