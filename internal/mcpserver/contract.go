package mcpserver

// QuerySyntax describes the search mini-language accepted by search_files.
const QuerySyntax = `# Sowilo Query Syntax

A query is free text mixed with ` + "`" + `key:value` + "`" + ` tokens. Tokens may appear anywhere;
what remains after removing them is the free text.

## Free text

- Matched against file content and file name.
- Case and diacritics are ignored: ` + "`" + `zluty` + "`" + ` finds ` + "`" + `žlutý` + "`" + `.
- Czech and English stopwords are dropped; Czech words are reduced to a light stem.
- With ` + "`" + `fuzzy` + "`" + ` enabled every term also matches words one edit away.
- Empty free text matches every file.

## Filters

| Token | Meaning |
|-------|---------|
| ` + "`" + `type:pdf` + "`" + `, ` + "`" + `ext:docx` + "`" + ` | file extension, leading dot optional |
| ` + "`" + `author:novak` + "`" + ` | document author |
| ` + "`" + `version:1.7` + "`" + ` | document version |
| ` + "`" + `checksum:<sha256>` + "`" + ` | exact content hash |
| ` + "`" + `path:/data/contracts` + "`" + ` | files under a folder |
| ` + "`" + `name:"annual report"` + "`" + ` | words in the file name |
| ` + "`" + `<key>:<value>` + "`" + ` | any other document metadata field |

Quote values containing spaces: ` + "`" + `author:"Jan Novák"` + "`" + `.

## Dates

` + "`" + `from:` + "`" + ` and ` + "`" + `to:` + "`" + ` bound the modification time, inclusive. Accepted forms:
` + "`" + `2025-01-31` + "`" + `, ` + "`" + `31.01.2025` + "`" + `, ` + "`" + `2025-01-31T08:00:00` + "`" + ` and RFC3339.
A date-only ` + "`" + `to:` + "`" + ` covers the whole day. Tokens with an unparseable date are ignored
and reported back.

## Example

` + "```" + `
smlouva o dílo type:pdf author:"Jan Novák" from:2024-01-01 to:31.12.2024
` + "```" + `
`
