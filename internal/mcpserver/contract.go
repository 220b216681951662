package mcpserver

// StyleEnumContract documents the fixed style enumeration and node structure
// for LLM consumers creating content through the MCP tools.
const StyleEnumContract = `# Othala Content Styles

Every content node carries zero or more styles from a FIXED enumeration.
Styles outside this set are rejected before anything is written.

## Enumeration

- ` + "`blog`" + ` — long-form article or essay
- ` + "`chapter`" + ` — part of a longer manuscript
- ` + "`post`" + ` — mid-length piece (LinkedIn, Instagram, forum)
- ` + "`snippet`" + ` — short extract derived from another node
- ` + "`tweet`" + ` — X/Twitter-sized text (280 characters)

## Rules

1. Content nodes are immutable. Derivation tools (extract_raw,
   extract_paragraphs, extract_sections, extract_social, combine_content)
   always create NEW nodes and link back to their sources.
2. Relations between content nodes use exactly two types:
   ` + "`snippet_of`" + ` (derived extract points at its source) and
   ` + "`related_to`" + ` (editorial association).
3. Tags, authors, styles, and links are identified by slugs: lowercase,
   with runs of other characters collapsed to single dashes
   ("Python_3.11" becomes "python_3-11"). Pass human-readable names;
   slugging is automatic and idempotent.
4. List-valued tool arguments are comma-separated strings, e.g.
   ` + "`style: \"blog,post\"`" + `.
5. Dates are ISO-8601 UTC timestamps assigned at creation time.
`
