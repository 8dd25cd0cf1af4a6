package lang

import (
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/phobologic/headerdoc/internal/model"
)

// HeaderExtensions are the file extensions treated as C++ headers.
var HeaderExtensions = []string{".h", ".hh", ".hpp", ".hxx", ".h++", ".inl", ".ipp", ".tcc"}

func init() {
	Languages["cpp"] = &Language{
		Name:       "cpp",
		Extensions: HeaderExtensions,
		lang:       cpp.GetLanguage(),
		Captures: map[string]model.DeclKind{
			"definition.namespace": model.KindNamespace,
			"definition.class":     model.KindClass,
			"definition.enum":      model.KindEnum,
			"definition.macro":     model.KindMacro,
		},
	}
}
