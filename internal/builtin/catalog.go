package builtin

import "github.com/docorg/docorg/internal/plugin"

// Catalog holds the factories for all built-in plugins.
var Catalog = plugin.NewCatalog()

func init() {
	Catalog.MustRegister(textParserID, func() plugin.Plugin { return NewTextParser() })
	Catalog.MustRegister(keywordAnalyzerID, func() plugin.Plugin { return NewKeywordAnalyzer() })
	Catalog.MustRegister(categoryOrganizerID, func() plugin.Plugin { return NewCategoryOrganizer() })
	Catalog.MustRegister(cacheCleanerID, func() plugin.Plugin { return NewCacheCleaner() })
}
