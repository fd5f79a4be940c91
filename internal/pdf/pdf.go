// Package pdf pulls embedded images out of PDF documents so that they can be
// scanned like any other picture.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options selects pages and supplies credentials for encrypted documents.
type Options struct {
	// Pages is a range such as "1-3,7". Empty means every page.
	Pages         string
	UserPassword  string
	OwnerPassword string
}

// PageImage is one image embedded in a page.
type PageImage struct {
	Page  int
	Index int
	Image image.Image
}

func (o Options) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = o.UserPassword
	conf.OwnerPW = o.OwnerPassword
	return conf
}

// PageCount returns the number of pages in the document.
func PageCount(filename string, opts Options) (int, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: reading user-provided PDF path is expected
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	n, err := api.PageCount(f, opts.configuration())
	if err != nil {
		return 0, wrapPasswordError(err)
	}
	return n, nil
}

// ExtractImages extracts every embedded image of the selected pages using
// pdfcpu. Images are returned ordered by page and position on the page.
func ExtractImages(ctx context.Context, filename string, opts Options) ([]PageImage, error) {
	pageNumbers, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", filename, err)
	}

	tempDir, err := os.MkdirTemp("", "metascan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, n := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, opts.configuration()); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", wrapPasswordError(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return collectExtractedImages(ctx, tempDir)
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: files come from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// collectExtractedImages loads the images pdfcpu wrote to dir. Files are
// named <base>_<page>_<id>.<ext>; unreadable or foreign files are skipped.
func collectExtractedImages(ctx context.Context, dir string) ([]PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type named struct {
		page int
		id   string
		path string
	}
	var files []named
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, id, err := parseExtractedName(e.Name())
		if err != nil {
			continue
		}
		files = append(files, named{page: page, id: id, path: filepath.Join(dir, e.Name())})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].page != files[j].page {
			return files[i].page < files[j].page
		}
		return naturalLess(files[i].id, files[j].id)
	})

	var out []PageImage
	index := map[int]int{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := loadImageFile(f.path)
		if err != nil || img == nil {
			continue
		}
		out = append(out, PageImage{Page: f.page, Index: index[f.page], Image: img})
		index[f.page]++
	}
	return out, nil
}

// parseExtractedName reads the page number and image id from an extracted
// file name. Older pdfcpu releases wrote page_<page>_image_<id>.<ext>.
func parseExtractedName(filename string) (int, string, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if strings.HasPrefix(stem, "page_") && len(parts) >= 2 {
		page, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, "", errors.New("invalid page number")
		}
		return page, parts[len(parts)-1], nil
	}
	if len(parts) < 3 {
		return 0, "", errors.New("not an extracted image")
	}
	page, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, "", errors.New("invalid page number")
	}
	return page, parts[len(parts)-1], nil
}

func naturalLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("page %d out of range", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	if page < 1 {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	return []int{page}, nil
}
