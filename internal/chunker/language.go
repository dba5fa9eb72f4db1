package chunker

import "strings"

// languageByExt maps file extensions to language tags. Unknown extensions
// get "unknown".
var languageByExt = map[string]string{
	".py":    "python",
	".pyi":   "python",
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".rs":    "rust",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".md":    "markdown",
	".rst":   "markdown",
	".txt":   "text",
}

var languageByName = map[string]string{
	"Makefile":   "make",
	"Dockerfile": "dockerfile",
}

// LanguageFor derives a language tag from extension or filename.
func LanguageFor(ext, name string) string {
	if lang, ok := languageByExt[strings.ToLower(ext)]; ok {
		return lang
	}
	if lang, ok := languageByName[name]; ok {
		return lang
	}
	return "unknown"
}

// defaultExcludes mirrors common build, VCS, and dependency directories.
var defaultExcludes = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".codegraph",
	"dist",
	"build",
	"target",
	".venv",
	"venv",
}

// allowedExtensions returns the allow-list set, falling back to the broad
// built-in list covering common source, config, and doc extensions.
func allowedExtensions(include []string) map[string]bool {
	set := make(map[string]bool)
	if len(include) > 0 {
		for _, e := range include {
			if strings.HasPrefix(e, ".") {
				set[strings.ToLower(e)] = true
			} else {
				set[e] = true // bare filename like Makefile
			}
		}
		return set
	}
	for ext := range languageByExt {
		set[ext] = true
	}
	for name := range languageByName {
		set[name] = true
	}
	return set
}
