package mcp

import "github.com/mark3labs/mcp-go/mcp"

var advisorsToolDef = mcp.NewTool("council_advisors",
	mcp.WithDescription("List every advisor persona in registry order, marking the recommended and selected ones."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var submitToolDef = mcp.NewTool("council_submit",
	mcp.WithDescription("Submit a problem from the welcome screen. Moves to panel selection and recommends up to 3 advisors."),
	mcp.WithString("problem",
		mcp.Required(),
		mcp.Description("The problem or dilemma to put before the council"),
	),
	mcp.WithBoolean("wait",
		mcp.Description("Wait for the panel recommendation before returning (default: true)"),
	),
)

var toggleToolDef = mcp.NewTool("council_toggle",
	mcp.WithDescription("Add or remove an advisor from the panel on the selection screen. Adding to a full panel is a no-op."),
	mcp.WithString("persona_id",
		mcp.Required(),
		mcp.Description("Advisor id as listed by council_advisors"),
	),
)

var beginToolDef = mcp.NewTool("council_begin",
	mcp.WithDescription("Start the round table: every selected advisor answers the problem. Returns when all have answered."),
)

var followUpToolDef = mcp.NewTool("council_follow_up",
	mcp.WithDescription("Ask the panel a follow-up question. Each advisor sees the others' answers as background."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The follow-up question"),
	),
)

var adjustToolDef = mcp.NewTool("council_adjust",
	mcp.WithDescription("Return from the consultation to panel selection, keeping the transcript."),
)

var resetToolDef = mcp.NewTool("council_reset",
	mcp.WithDescription("Return to the welcome screen. The current session stays in history."),
)

var clearToolDef = mcp.NewTool("council_clear",
	mcp.WithDescription("Clear the consultation transcript. The archived copy is kept."),
	mcp.WithDestructiveHintAnnotation(true),
)

var statusToolDef = mcp.NewTool("council_status",
	mcp.WithDescription("Show the active session: screen, problem, panel and transcript."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("council_history",
	mcp.WithDescription("List archived sessions, most recently touched first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip (default 0)"),
	),
)

var openToolDef = mcp.NewTool("council_open",
	mcp.WithDescription("Resume an archived session on the consultation screen."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Session id from council_history"),
	),
)

var deleteToolDef = mcp.NewTool("council_delete",
	mcp.WithDescription("Delete an archived session. Deleting the active session also resets to the welcome screen."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Session id from council_history"),
	),
)

var exportToolDef = mcp.NewTool("council_export",
	mcp.WithDescription("Write the active transcript to a file (default ~/.council/exports)."),
	mcp.WithString("format",
		mcp.Description("Output format (default: text)"),
		mcp.Enum("text", "html"),
	),
	mcp.WithString("path",
		mcp.Description("Output path; must sit directly in ~/.council/exports or an allowed_paths entry"),
	),
)

var archiveExportToolDef = mcp.NewTool("council_archive_export",
	mcp.WithDescription("Back up the whole session archive to a JSONL file."),
	mcp.WithString("path",
		mcp.Description("Output .jsonl path (default ~/.council/exports/council-archive-<timestamp>.jsonl)"),
	),
)

var archiveImportToolDef = mcp.NewTool("council_archive_import",
	mcp.WithDescription("Restore sessions from a JSONL archive export."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Input .jsonl path"),
	),
	mcp.WithString("mode",
		mcp.Description("On id collision: error (default, atomic), replace, or skip"),
		mcp.Enum("error", "replace", "skip"),
	),
)
