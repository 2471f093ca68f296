package render

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// FontHandle is a resolved label font.
type FontHandle struct {
	Face text.Face // nil only if no font at all could be loaded
	Name string    // file name of the resolved font, or "goregular"
	// Fallback is true when the preferred font was not found.
	Fallback bool
}

type fontCache struct {
	mu      sync.Mutex
	sources map[string]*text.FontSource // key: lowercase preferred name + dirs
	names   map[string]string
}

var fonts = &fontCache{
	sources: make(map[string]*text.FontSource),
	names:   make(map[string]string),
}

var fallbackSource = sync.OnceValues(func() (*text.FontSource, error) {
	return text.NewFontSource(goregular.TTF)
})

// ResolveFont returns a face for the preferred font at size pixels.
// preferred may be a font file path or a bare name such as "arial", which is
// matched case-insensitively against .ttf/.otf files in dirs and the system
// font directories. If nothing matches, the embedded Go Regular font is used.
// ResolveFont never fails.
func ResolveFont(preferred string, size float64, dirs ...string) FontHandle {
	if src, name := fonts.lookup(preferred, dirs); src != nil {
		return FontHandle{Face: src.Face(size), Name: name}
	}

	src, err := fallbackSource()
	if err != nil {
		logger().Warn("no usable label font", "preferred", preferred, "error", err)
		return FontHandle{Name: "none", Fallback: true}
	}
	return FontHandle{Face: src.Face(size), Name: "goregular", Fallback: true}
}

func (c *fontCache) lookup(preferred string, dirs []string) (*text.FontSource, string) {
	if preferred == "" {
		return nil, ""
	}
	key := strings.ToLower(preferred) + "\x00" + strings.Join(dirs, "\x00")

	c.mu.Lock()
	defer c.mu.Unlock()

	if src, ok := c.sources[key]; ok {
		return src, c.names[key]
	}

	var src *text.FontSource
	path := findFontFile(preferred, dirs)
	if path != "" {
		var err error
		src, err = text.NewFontSourceFromFile(path)
		if err != nil {
			logger().Debug("font file rejected", "path", path, "error", err)
			src = nil
		}
	}
	// Negative results are cached too, so each name is searched once.
	c.sources[key] = src
	c.names[key] = filepath.Base(path)
	return src, c.names[key]
}

func findFontFile(preferred string, dirs []string) string {
	if info, err := os.Stat(preferred); err == nil && !info.IsDir() {
		return preferred
	}

	want := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(preferred, ".ttf"), ".otf"))
	var found string
	for _, dir := range append(dirs, systemFontDirs()...) {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || found != "" {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".ttf" && ext != ".otf" {
				return nil
			}
			if strings.ToLower(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))) == want {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func systemFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	case "darwin":
		return []string{
			"/System/Library/Fonts",
			"/Library/Fonts",
			filepath.Join(home, "Library", "Fonts"),
		}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".fonts"),
			filepath.Join(home, ".local", "share", "fonts"),
		}
	}
}
