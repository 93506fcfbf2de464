package ocr

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF-")

// leptonicaが読める形式
var recognizableImageTypes = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tif":  true,
	"tiff": true,
}

// IsPDF ファイル先頭のマジックバイトでPDFかどうかを判定
func IsPDF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("read image header: %w", err)
	}
	return bytes.Equal(head[:n], pdfMagic), nil
}

// ExtractPDFImages PDFの全ページから埋め込み画像を取り出す
//
// ページ順、同一ページ内はオブジェクト番号順に並べる。
func ExtractPDFImages(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	pages, err := api.ExtractImagesRaw(f, nil, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	var images [][]byte
	for _, page := range pages {
		objNrs := make([]int, 0, len(page))
		for objNr := range page {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			img := page[objNr]
			if !recognizableImageTypes[strings.ToLower(img.FileType)] {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read pdf image %s: %w", img.Name, err)
			}
			images = append(images, data)
		}
	}
	return images, nil
}
