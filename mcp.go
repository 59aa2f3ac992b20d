package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// configLink is a transport that can push a configuration to the
// instrument and pull one back.
type configLink interface {
	SendConfig(t *Table) error
	ReceiveConfig(ctx context.Context, r *Receiver) error
}

// toolset holds the state shared by the MCP tool handlers. link is nil
// when no instrument is connected.
type toolset struct {
	session *Receiver
	link    configLink
	timeout time.Duration
}

func newMCPServer(ts *toolset) *server.MCPServer {
	s := server.NewMCPServer(
		"EWI MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("ewi_describe-sysex",
		mcp.WithDescription("Returns the SysEx configuration format of the EWI USB."),
	), docToolHandler)

	s.AddTool(mcp.NewTool("ewi_list-params",
		mcp.WithDescription("Lists every configuration parameter with its address, range, default and current value."),
	), ts.listParams)

	s.AddTool(mcp.NewTool("ewi_get-param",
		mcp.WithDescription("Returns the current value of one configuration parameter."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The parameter name (e.g., breath_gain, transpose).")),
	), ts.getParam)

	s.AddTool(mcp.NewTool("ewi_set-param",
		mcp.WithDescription("Sets one configuration parameter in the working configuration. Use ewi_send-config to apply it to the instrument."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The parameter name (e.g., breath_gain, transpose).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("The new value; must be within the parameter's range.")),
	), ts.setParam)

	s.AddTool(mcp.NewTool("ewi_reset",
		mcp.WithDescription("Restores the working configuration to factory defaults."),
	), ts.reset)

	s.AddTool(mcp.NewTool("ewi_load-file",
		mcp.WithDescription("Loads a .syx file into the working configuration."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .syx file.")),
	), ts.loadFile)

	s.AddTool(mcp.NewTool("ewi_save-file",
		mcp.WithDescription("Saves the working configuration as a .syx file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .syx file to write.")),
	), ts.saveFile)

	s.AddTool(mcp.NewTool("ewi_send-config",
		mcp.WithDescription("Sends the working configuration to the instrument. The instrument must be in SysEx mode."),
	), ts.sendConfig)

	s.AddTool(mcp.NewTool("ewi_receive-config",
		mcp.WithDescription("Waits for the instrument to send its configuration and loads it into the working configuration."),
	), ts.receiveConfig)

	return s
}

func runMCP(ts *toolset) error {
	s := newMCPServer(ts)
	slog.Info("mcp: starting EWI MCP server")
	return server.ServeStdio(s)
}

//go:embed ewi_usb_sysex.txt
var sysexDoc string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slog.Info("mcp: handling sysex documentation request")
	return mcp.NewToolResultText(sysexDoc), nil
}

func (ts *toolset) listParams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params []Parameter
	ts.session.View(func(t *Table) { params = t.Params() })

	asJson, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func (ts *toolset) getParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var v int
	err = ts.session.Update(func(t *Table) error {
		v, err = t.GetByName(name)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s = %d", name, v)), nil
}

func (ts *toolset) setParam(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireInt("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slog.Info("mcp: set param", "name", name, "value", value)

	err = ts.session.Update(func(t *Table) error {
		if _, ok := t.Lookup(name); !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return t.SetByName(name, value)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s set to %d.", name, value)), nil
}

func (ts *toolset) reset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_ = ts.session.Update(func(t *Table) error {
		t.Reset()
		return nil
	})
	return mcp.NewToolResultText("Configuration reset to factory defaults."), nil
}

func (ts *toolset) loadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var n int
	err = ts.session.Update(func(t *Table) error {
		n, err = LoadSysExFile(path, t)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %d frames from %s.", n, path)), nil
}

func (ts *toolset) saveFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = ts.session.Update(func(t *Table) error {
		return SaveSysExFile(path, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %v", path, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Configuration saved to %s.", path)), nil
}

var errNoInstrument = errors.New("no instrument connected")

func (ts *toolset) sendConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ts.link == nil {
		return mcp.NewToolResultError(errNoInstrument.Error()), nil
	}

	var snapshot *Table
	ts.session.View(func(t *Table) { snapshot = t.Clone() })

	if err := ts.link.SendConfig(snapshot); err != nil {
		return nil, fmt.Errorf("failed to send config: %v", err)
	}
	return mcp.NewToolResultText("Configuration sent."), nil
}

func (ts *toolset) receiveConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if ts.link == nil {
		return mcp.NewToolResultError(errNoInstrument.Error()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, ts.timeout)
	defer cancel()

	if err := ts.link.ReceiveConfig(ctx, ts.session); err != nil {
		return nil, fmt.Errorf("failed to receive config: %v", err)
	}
	return ts.listParams(ctx, request)
}
