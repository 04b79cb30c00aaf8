package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// WhoAmIInput is the input for al_whoami.
type WhoAmIInput struct{}

// WhoAmIOutput is the output for al_whoami.
type WhoAmIOutput struct {
	Username         string   `json:"username"`
	Name             string   `json:"name"`
	Email            string   `json:"email,omitempty"`
	Classification   string   `json:"classification,omitempty"`
	Roles            []string `json:"roles,omitempty"`
	Server           string   `json:"server"`
	Generation       string   `json:"generation"`
	SessionDurationS int      `json:"session_duration_s,omitempty"`
}

// ToolWhoAmI reports the logged in identity and the connection details.
func ToolWhoAmI(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input WhoAmIInput) (*sdkmcp.CallToolResult, WhoAmIOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input WhoAmIInput) (*sdkmcp.CallToolResult, WhoAmIOutput, error) {
		user, err := d.Client.WhoAmI(ctx)
		if err != nil {
			return nil, WhoAmIOutput{}, WrapAssemblylineError(err)
		}

		return nil, WhoAmIOutput{
			Username:         user.Username,
			Name:             user.Name,
			Email:            user.Email,
			Classification:   user.Classification,
			Roles:            user.Roles,
			Server:           d.Client.BaseURL(),
			Generation:       d.Client.Generation().String(),
			SessionDurationS: int(d.Client.SessionDuration().Seconds()),
		}, nil
	}
}
