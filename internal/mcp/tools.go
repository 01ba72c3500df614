package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/standardbeagle/relink/internal/scan"
	"github.com/standardbeagle/relink/pkg/filters"
)

func (s *Server) registerTools() {
	s.registerScanDocument()
	s.registerListGroups()
	s.registerUnbindGroup()
	s.registerSelectNodes()
}

// scanSummary is the compact scan_document result; full member detail
// comes from list_groups.
type scanSummary struct {
	Category scan.Category  `json:"category"`
	Total    int            `json:"total"`
	Groups   []groupSummary `json:"groups"`
}

type groupSummary struct {
	Key     string        `json:"key"`
	Members int           `json:"members"`
	Sample  memberSummary `json:"sample"`
}

type memberSummary struct {
	NodeID   string `json:"nodeId"`
	NodeName string `json:"nodeName"`
	Property string `json:"property"`
}

func (s *Server) registerScanDocument() {
	tool := mcplib.NewTool("scan_document",
		mcplib.WithDescription(`Scan the open document for style values that are not linked to design tokens.

**When to use:**
- User asks "what raw colors are in this file?", "find unlinked spacing", "audit token coverage"
- Before remediation: scan first, then unbind_group or select_nodes against the results
- After document edits, to refresh group keys (keys are deterministic for identical content)

**Categories:**
- Raw-value scans: fill, stroke, typography, vertical-gap, horizontal-padding, vertical-padding, corner-radius, opacity
- Binding audits: team-library, local-library, missing-library

**Workflow:**
1. scan_document with {"category": "fill"}
2. list_groups for full member detail
3. unbind_group with a group key, or select_nodes to highlight members

One scan runs at a time; starting another while one is active fails.`),
		mcplib.WithString("category",
			mcplib.Required(),
			mcplib.Description("The finding category to scan for (see the list above)"),
		),
		mcplib.WithString("node_ids",
			mcplib.Description("Comma-separated container node ids to limit the scan; empty scans the whole page"),
		),
		mcplib.WithBoolean("ignore_hidden",
			mcplib.Description("Skip nodes hidden by themselves or by an ancestor"),
		),
	)
	s.srv.AddTool(tool, s.handleScanDocument)
}

func (s *Server) handleScanDocument(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	category, err := request.RequireString("category")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	req := scan.Request{
		Category:     scan.Category(category),
		IgnoreHidden: request.GetBool("ignore_hidden", false),
	}
	if ids := request.GetString("node_ids", ""); ids != "" {
		req.Scope.NodeIDs = splitIDs(ids)
	}

	result, err := s.engine.Scan(ctx, req, nil)
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	s.setLast(result)

	summary := scanSummary{
		Category: result.Category,
		Total:    result.Total,
		Groups:   make([]groupSummary, 0, len(result.Groups)),
	}
	for _, g := range result.Groups {
		first := g.Findings[0]
		summary.Groups = append(summary.Groups, groupSummary{
			Key:     g.Key,
			Members: len(g.Findings),
			Sample: memberSummary{
				NodeID:   first.NodeID,
				NodeName: first.NodeName,
				Property: first.Property,
			},
		})
	}
	return textResult(summary)
}

func (s *Server) registerListGroups() {
	tool := mcplib.NewTool("list_groups",
		mcplib.WithDescription(`List every group from the most recent scan_document call, including each member finding with its node id, name, path, property, captured value and binding state.

**When to use:**
- After scan_document, to inspect which nodes carry a shared raw value
- To pick member node ids for select_nodes
- To confirm a group's contents before unbind_group
- With a filter, to find the group for a known value or node ("which group has the Hero Banner?")

A filter keeps groups whose key or any member node name matches.
Requires a prior scan_document in this session.`),
		mcplib.WithString("filter",
			mcplib.Description("Query to narrow the groups; empty returns all"),
		),
		mcplib.WithString("filter_mode",
			mcplib.Description("How the filter matches: contains (default), exact, or regex"),
		),
	)
	s.srv.AddTool(tool, s.handleListGroups)
}

func (s *Server) handleListGroups(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	last := s.lastResult()
	if last == nil {
		return mcplib.NewToolResultError("no scan results yet: run scan_document first"), nil
	}
	query := request.GetString("filter", "")
	if query == "" {
		return textResult(last.Groups)
	}
	matcher, err := filters.New(filters.Mode(request.GetString("filter_mode", "")), query)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	kept := make([]scan.Group, 0, len(last.Groups))
	for _, g := range last.Groups {
		if matchGroup(matcher, g) {
			kept = append(kept, g)
		}
	}
	return textResult(kept)
}

func matchGroup(m *filters.Matcher, g scan.Group) bool {
	if m.Match(g.Key) {
		return true
	}
	for _, f := range g.Findings {
		if m.Match(f.NodeName) {
			return true
		}
	}
	return false
}

func (s *Server) registerUnbindGroup() {
	tool := mcplib.NewTool("unbind_group",
		mcplib.WithDescription(`Apply the unbind action to every member of one group from the most recent scan: each finding's captured value is written back as a literal and its token binding is cleared.

**When to use:**
- User wants to flatten a token group: "unlink those 12 raw-red fills", "detach that spacing token everywhere"
- Cleanup flows after reviewing a group with list_groups

**Partial success:**
Members whose nodes were deleted since the scan are skipped and counted as failed; the rest still apply. The result reports successful and failed counts plus per-item messages.`),
		mcplib.WithString("key",
			mcplib.Required(),
			mcplib.Description("The group key exactly as returned by scan_document or list_groups"),
		),
	)
	s.srv.AddTool(tool, s.handleUnbindGroup)
}

func (s *Server) handleUnbindGroup(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	last := s.lastResult()
	if last == nil {
		return mcplib.NewToolResultError("no scan results yet: run scan_document first"), nil
	}

	for _, g := range last.Groups {
		if g.Key != key {
			continue
		}
		res := s.actor.UnbindGroup(ctx, g.Findings)
		return textResult(res)
	}
	return mcplib.NewToolResultError(fmt.Sprintf("no group %q in the last scan; run scan_document again", key)), nil
}

func (s *Server) registerSelectNodes() {
	tool := mcplib.NewTool("select_nodes",
		mcplib.WithDescription(`Select nodes in the document and scroll the first one into view.

**When to use:**
- Highlighting a group's members for the user: pass node ids from list_groups
- Jumping to a single offending node before a manual fix

Ids that no longer resolve are skipped; the result reports how many were selected.`),
		mcplib.WithString("node_ids",
			mcplib.Required(),
			mcplib.Description("Comma-separated node ids to select"),
		),
	)
	s.srv.AddTool(tool, s.handleSelectNodes)
}

func (s *Server) handleSelectNodes(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	raw, err := request.RequireString("node_ids")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	ids := splitIDs(raw)
	if len(ids) == 0 {
		return mcplib.NewToolResultError("node_ids is empty"), nil
	}

	count, err := s.host.SetSelection(ids)
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("selection failed: %v", err)), nil
	}
	if count > 0 {
		if err := s.host.ScrollIntoView(ids); err != nil {
			s.log.Warn("scroll into view failed", "error", err)
		}
	}
	return textResult(map[string]interface{}{"selected": count})
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func textResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcplib.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}
