// Package identification turns lookup candidates into resolved titles.
//
// Files are grouped by fingerprint so each distinct hash is looked up once.
// The Resolver walks the groups in first-seen order: a single candidate is
// taken as is, several candidates are put to a Prompter once per file, and
// files without candidates are reported as unmatched. Resolved titles form a
// set keyed by IMDb id.
//
// ConsolePrompter is the interactive Prompter used by the CLI.
package identification
