package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
)

var (
	firstPage int
	lastPage  int
	box       bool
	printHelp bool
)

func init() {
	flag.IntVar(&firstPage, "f", 1, "first page to examine")
	flag.IntVar(&lastPage, "l", 0, "last page to examine")
	flag.BoolVar(&box, "box", false, "print the page bounding boxes")
	flag.BoolVar(&printHelp, "h", false, "print usage information")
	flag.BoolVar(&printHelp, "help", false, "print usage information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pdfinfo [options] <PDF-file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  -f <int>          : first page to examine\n")
		fmt.Fprintf(os.Stderr, "  -l <int>          : last page to examine\n")
		fmt.Fprintf(os.Stderr, "  -box              : print the page bounding boxes\n")
		fmt.Fprintf(os.Stderr, "  -h                : print usage information\n")
		fmt.Fprintf(os.Stderr, "  -help             : print usage information\n")
	}
}

func main() {
	flag.Parse()

	if printHelp {
		flag.Usage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputFile := args[0]

	doc, err := pdf.Open(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Couldn't open file '%s': %v\n", inputFile, err)
		os.Exit(1)
	}
	defer doc.Close()

	for _, key := range []string{"Title", "Subject", "Keywords", "Author", "Creator", "Producer", "CreationDate", "ModDate"} {
		if s, ok := doc.Resolve(doc.Info.Get(key)).(pdf.String); ok {
			fmt.Printf("%-16s%s\n", key+":", s.Text())
		}
	}
	fmt.Printf("Pages:          %d\n", doc.NumPages())
	if fi, err := os.Stat(inputFile); err == nil {
		fmt.Printf("File size:      %d bytes\n", fi.Size())
	}
	fmt.Printf("PDF version:    %s\n", doc.Version)

	first := max(firstPage, 1)
	last := lastPage
	if last == 0 || last > doc.NumPages() {
		last = doc.NumPages()
	}
	for n := first; n <= last; n++ {
		page, err := doc.GetPage(n)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: page %d: %v\n", n, err)
			continue
		}
		fmt.Printf("Page %4d size: %.2f x %.2f pts", n, page.Width(), page.Height())
		if paper := detectPaperSize(page.Width(), page.Height()); paper != "" {
			fmt.Printf(" (%s)", paper)
		}
		fmt.Println()
		fmt.Printf("Page %4d rot:  %d\n", n, page.Rotate)
		if box {
			printBox(n, "MediaBox", page.MediaBox)
			printBox(n, "CropBox", page.CropBox)
		}
	}
}

func printBox(n int, name string, r pdf.Rectangle) {
	fmt.Printf("Page %4d %-9s %.2f %.2f %.2f %.2f\n", n, name+":", r.LLX, r.LLY, r.URX, r.URY)
}

func detectPaperSize(width, height float64) string {
	// Common paper sizes in points
	sizes := []struct {
		name string
		w, h float64
	}{
		{"letter", 612, 792},
		{"legal", 612, 1008},
		{"A4", 595.276, 841.89},
		{"A3", 841.89, 1190.55},
		{"A5", 419.528, 595.276},
		{"tabloid", 792, 1224},
	}

	const tolerance = 5.0
	for _, size := range sizes {
		if (abs(width-size.w) < tolerance && abs(height-size.h) < tolerance) ||
			(abs(width-size.h) < tolerance && abs(height-size.w) < tolerance) {
			orientation := "portrait"
			if width > height {
				orientation = "landscape"
			}
			return fmt.Sprintf("%s, %s", size.name, orientation)
		}
	}
	return ""
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
