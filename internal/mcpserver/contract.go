package mcpserver

// StorageLayout describes how flownote lays out a connected directory, so
// LLM consumers editing files by hand keep them loadable.
const StorageLayout = `# flownote Storage Layout

A connected directory holds one JSON document per collection plus a trash tree.

` + "```" + `text
notes.json            array of notes
folders.json          array of folder names, including empty folders
flows.json            array of flows
flowCategories.json   array of category names, including empty categories
theme.json            {"theme": "default" | "darker"}
trash-index.json      {"version": 1, "items": [...]}
trash/notes/<id>.json full copy of a trashed note
trash/flows/<id>.json full copy of a trashed flow
` + "```" + `

## Rules

1. **Documents are whole-file JSON**, written with two-space indentation and replaced
   atomically. Never append to them.
2. **Notes** carry ` + "`" + `id` + "`" + `, ` + "`" + `title` + "`" + `, ` + "`" + `content` + "`" + `, an optional ` + "`" + `folder` + "`" + ` and
   ` + "`" + `created_at` + "`" + ` / ` + "`" + `updated_at` + "`" + ` RFC 3339 timestamps. An empty folder means unfiled.
3. **Flows** carry ` + "`" + `nodes` + "`" + ` whose ` + "`" + `noteId` + "`" + ` references a note id. The note may be
   gone; the node keeps its ` + "`" + `label` + "`" + `.
4. **Trash entries** are written copy-first: the ` + "`" + `trash/` + "`" + ` file exists before the index
   entry, and the item is removed from its collection last.
5. **A malformed document loads as empty.** Validate by hand before saving.
6. Prefer the tools of this server over editing files; they keep the trash index and
   the collections consistent.
`
