package explorer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"xdao.co/zkview/disasm"
	"xdao.co/zkview/model"
)

func RenderImage(w io.Writer, v *ImageView) error {
	m := v.Image.Manifest
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Image\t%s\n", v.Image.ID)
	fmt.Fprintf(tw, "Mode\t%s\n", m.Mode())
	fmt.Fprintf(tw, "Method\t%s\n", m.Signature())
	fmt.Fprintf(tw, "Arguments\t%s\n", m.Arguments())
	fmt.Fprintf(tw, "Result\t%s\n", m.ResultType)
	if m.ElfID != "" {
		fmt.Fprintf(tw, "ELF ID\t%s\n", model.ShortenString(m.ElfID))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Files")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range v.Image.Files {
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", f.Name, f.Hash, f.Size)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	return RenderSessions(w, v.Sessions)
}

func RenderSessions(w io.Writer, recs []model.ProofRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No sessions")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tSTARTED\tDURATION\tRECEIPT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.SessionID, r.Status, r.StartLabel(), r.DurationLabel(), r.ReceiptLabel())
	}
	return tw.Flush()
}

func RenderSession(w io.Writer, v *SessionView) error {
	r := v.Record
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Session\t%s\n", r.SessionID)
	fmt.Fprintf(tw, "Image\t%s\n", r.ImageCID)
	fmt.Fprintf(tw, "Status\t%s\n", r.Status)
	fmt.Fprintf(tw, "Started\t%s\n", r.StartLabel())
	fmt.Fprintf(tw, "Duration\t%s\n", r.DurationLabel())
	fmt.Fprintf(tw, "Receipt\t%s\n", r.ReceiptLabel())
	return tw.Flush()
}

// RenderDisassembly writes the text of a settled viewer, or a placeholder.
func RenderDisassembly(w io.Writer, s disasm.Snapshot) error {
	if !s.Ready() {
		_, err := fmt.Fprintln(w, ";; disassembly unavailable")
		return err
	}
	_, err := io.WriteString(w, s.Text)
	return err
}
