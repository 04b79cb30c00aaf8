package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/internal/mcp/tools"
	"github.com/usestring/assemblyline-mcp/internal/schema"
)

// Resource URI scheme: assemblyline://
// Supported URIs:
//   assemblyline://submission/{sid}
//   assemblyline://submission/{sid}/full
//   assemblyline://schema/submission-params

const uriScheme = "assemblyline://"

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "assemblyline://submission/{sid}",
		Name:        "Submission",
		Description: "Submission summary: state, max score, files and parameters. Same data as al_submission_get.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.8,
		},
	}, s.handleResourceSubmission)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "assemblyline://submission/{sid}/full",
		Name:        "Submission Tree",
		Description: "Complete submission with every service result and error. High context cost - only fetch when the summary is not enough.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.3,
		},
	}, s.handleResourceSubmission)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         tools.SubmissionParamsSchemaURI,
		Name:        "Submission Parameters Schema",
		Description: "JSON Schema of the params accepted by al_submit",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceParamsSchema)
}

func (s *Server) handleResourceSubmission(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	if params["full"] == "true" {
		raw, err := s.deps.Client.SubmissionFull(ctx, params["sid"])
		if err != nil {
			return nil, tools.WrapAssemblylineError(err)
		}
		return rawResourceResult(req.Params.URI, raw), nil
	}

	sub, err := s.deps.FetchSubmission(ctx, params["sid"])
	if err != nil {
		return nil, tools.WrapAssemblylineError(err)
	}
	return toResourceResult(req.Params.URI, tools.ToSubmissionView(sub))
}

func (s *Server) handleResourceParamsSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	data, err := schema.SubmissionParamsJSON()
	if err != nil {
		return nil, err
	}
	return rawResourceResult(req.Params.URI, data), nil
}

// parseResourceURI extracts parameters from an assemblyline:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + uriScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, uriScheme), "/")
	params := make(map[string]string)

	switch parts[0] {
	case "submission":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("submission URI requires a sid")
		}
		params["sid"] = parts[1]
		if len(parts) >= 3 {
			if parts[2] != "full" {
				return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown submission view: %s", parts[2]))
			}
			params["full"] = "true"
		}

	case "schema":
		if len(parts) < 2 {
			return nil, tools.ErrInvalidInput("schema URI requires a name")
		}
		params["name"] = parts[1]

	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", parts[0]))
	}

	return params, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}
	return rawResourceResult(uri, data), nil
}

func rawResourceResult(uri string, data []byte) *sdkmcp.ReadResourceResult {
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}
}
