// Package pdfdoc renders essay submissions as A4 PDF documents.
package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ieltsdesk/backend/grammar"
)

const (
	margin      = 14.0
	lineHeight  = 6.0
	fontSize    = 10.0
	fontFamily  = "Helvetica"
	baseline    = 4.5 // from the top of a line
	sectionGap  = 2.0
	imageMaxH   = 55.0
	underlineDy = 2.0
	underlineW  = 0.5
)

// Record is everything printed on a submission document.
type Record struct {
	StudentName string
	TaskType    string
	Question    string
	WordCount   int
	TimeSpent   string
	Image       []byte
	EssayText   string
	// Runs overrides EssayText when set. Error runs are drawn in red and
	// underlined.
	Runs        []grammar.Run
	Annotated   bool
	SubmittedAt time.Time
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	pageW float64
	pageH float64
	y     float64
}

// Render writes the document for rec to w.
func Render(w io.Writer, rec Record) error {
	pdf, err := build(rec)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func build(rec Record) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle("IELTS Writing Submission", true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	r := &renderer{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		pageW: pageW,
		pageH: pageH,
		y:     margin,
	}

	r.header(rec)
	r.field("Task Type:", rec.TaskType)
	r.field("Question:", rec.Question)
	if len(rec.Image) > 0 {
		r.image(rec.Image)
	}
	r.essay(rec)
	if !rec.SubmittedAt.IsZero() {
		r.field("Submitted At:", rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf, nil
}

// RenderBytes is Render into memory.
func RenderBytes(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *renderer) contentWidth() float64 {
	return r.pageW - 2*margin
}

// ensureSpace starts a new page when h more millimetres would cross the
// bottom margin.
func (r *renderer) ensureSpace(h float64) {
	if r.y+h > r.pageH-margin {
		r.pdf.AddPage()
		r.y = margin
	}
}

func (r *renderer) setFont(style string) {
	r.pdf.SetFont(fontFamily, style, fontSize)
}

func (r *renderer) measure(s string) float64 {
	return r.pdf.GetStringWidth(r.tr(s))
}

func (r *renderer) header(rec Record) {
	name := strings.TrimSpace(rec.StudentName)
	if name == "" {
		name = "—"
	}
	right := fmt.Sprintf("%s  |  %d words", rec.TimeSpent, rec.WordCount)

	r.ensureSpace(lineHeight)
	r.setFont("B")
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Text(margin, r.y+baseline, r.tr(name))
	r.setFont("")
	r.pdf.Text(r.pageW-margin-r.measure(right), r.y+baseline, r.tr(right))
	r.y += lineHeight + sectionGap
}

func (r *renderer) label(text string) {
	r.ensureSpace(lineHeight)
	r.setFont("B")
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Text(margin, r.y+baseline, r.tr(text))
	r.y += lineHeight
}

func (r *renderer) field(label string, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	r.label(label)
	r.paragraph([]grammar.Run{{Text: value}})
	r.y += sectionGap
}

func (r *renderer) paragraph(runs []grammar.Run) {
	r.setFont("")
	for _, line := range Layout(runs, r.contentWidth(), r.measure) {
		r.ensureSpace(lineHeight)
		base := r.y + baseline
		for _, frag := range line.Fragments {
			x := margin + frag.X
			if frag.IsError {
				r.pdf.SetTextColor(180, 0, 0)
			} else {
				r.pdf.SetTextColor(0, 0, 0)
			}
			r.pdf.Text(x, base, r.tr(frag.Text))
			if frag.IsError {
				r.pdf.SetDrawColor(220, 0, 0)
				r.pdf.SetLineWidth(underlineW)
				r.pdf.Line(x, base+underlineDy, x+frag.Width, base+underlineDy)
			}
		}
		r.y += lineHeight
	}
	r.pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) image(content []byte) {
	r.label("Image (chart/graph/diagram):")

	img, err := prepareImage(content)
	if err != nil {
		r.paragraph([]grammar.Run{{Text: "[Image attached]"}})
		r.y += sectionGap
		return
	}

	w, h := fitBox(img.width, img.height, r.contentWidth(), imageMaxH)
	r.ensureSpace(h)

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	r.pdf.RegisterImageOptionsReader("submission-image", opts, bytes.NewReader(img.png))
	r.pdf.ImageOptions("submission-image", margin, r.y, w, h, false, opts, 0, "")
	r.y += h + sectionGap
}

func (r *renderer) essay(rec Record) {
	if rec.Annotated {
		r.label("Essay (grammar mistakes in red):")
	} else {
		r.label("Essay:")
	}

	runs := rec.Runs
	if runs == nil {
		runs = grammar.BuildRuns(rec.EssayText, nil)
	}
	r.paragraph(runs)
	r.y += sectionGap
}
