package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/churrosoft/deck8-hub-go/internal/color"
	"github.com/churrosoft/deck8-hub-go/internal/keycode"
	"github.com/churrosoft/deck8-hub-go/internal/models"
)

// printer renders command results as JSON or as aligned tables.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

// emit writes v as JSON, or hands a tabwriter to text.
func (p *printer) emit(v any, text func(tw *tabwriter.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func (p *printer) ok() error {
	if p.json {
		return p.emit(map[string]bool{"ok": true}, nil)
	}
	return nil
}

func (p *printer) state(s models.StateSnapshot) error {
	return p.emit(s, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "connected:\t%v\n", s.Connected)
		fmt.Fprintf(tw, "active slot:\t%s\n", s.ActiveSlot)
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "KEY\tSLOT\tA\tB\tOVERRIDE\tKEYCODE\tSOUND")
		for i, k := range s.Keys {
			sound := "-"
			if ref := s.AudioConfig.KeySounds[i]; ref != nil {
				sound = *ref
				if e := s.AudioConfig.FindSound(*ref); e != nil {
					sound = e.DisplayName
				}
			}
			code := s.Keymaps[models.LEDToKeymap(i)]
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%v\t%s\t%s\n", i, k.ActiveSlot,
				color.HSVToHex(k.SlotA), color.HSVToHex(k.SlotB), k.OverrideEnabled,
				keycode.Label(code), sound)
		}
	})
}

func (p *printer) deviceInfo(d models.DeviceInfo) error {
	return p.emit(d, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "protocol:\t%d\n", d.ProtocolVersion)
		fmt.Fprintf(tw, "firmware:\t0x%08X\n", d.FirmwareVersion)
		fmt.Fprintf(tw, "uptime:\t%ds\n", d.Uptime)
		fmt.Fprintf(tw, "layers:\t%d\n", d.LayerCount)
		fmt.Fprintf(tw, "macros:\t%d (%d bytes)\n", d.MacroCount, d.MacroBufferSize)
	})
}

func (p *printer) rgb(r models.RgbMatrixState) error {
	return p.emit(r, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "brightness:\t%d\n", r.Brightness)
		fmt.Fprintf(tw, "effect:\t%d\n", r.Effect)
		fmt.Fprintf(tw, "speed:\t%d\n", r.Speed)
		fmt.Fprintf(tw, "color:\t%s (h=%d s=%d)\n",
			color.HSVToHex(models.HsvColor{H: r.ColorH, S: r.ColorS, V: 255}), r.ColorH, r.ColorS)
	})
}

func (p *printer) names(names []string) error {
	return p.emit(names, func(tw *tabwriter.Writer) {
		for _, n := range names {
			fmt.Fprintln(tw, n)
		}
	})
}

func (p *printer) audioDevices(l models.AudioDeviceList) error {
	return p.emit(l, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "DIRECTION\tNAME\tDEFAULT")
		for _, d := range l.InputDevices {
			fmt.Fprintf(tw, "input\t%s\t%s\n", d.Name, mark(d.IsDefault))
		}
		for _, d := range l.OutputDevices {
			fmt.Fprintf(tw, "output\t%s\t%s\n", d.Name, mark(d.IsDefault))
		}
	})
}

func (p *printer) sounds(s models.StateSnapshot) error {
	lib := s.AudioConfig.SoundLibrary
	if lib == nil {
		lib = []models.SoundEntry{}
	}
	return p.emit(lib, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tNAME\tFILE\tKEYS")
		for _, e := range lib {
			var keys []string
			for i, ref := range s.AudioConfig.KeySounds {
				if ref != nil && *ref == e.ID {
					keys = append(keys, fmt.Sprint(i))
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.DisplayName, e.Filename, strings.Join(keys, ","))
		}
	})
}

func (p *printer) sound(e models.SoundEntry) error {
	return p.emit(e, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.DisplayName, e.Filename)
	})
}

func (p *printer) entries(list []keycode.Entry) error {
	return p.emit(list, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "CODE\tLABEL\tCATEGORY")
		for _, e := range list {
			fmt.Fprintf(tw, "0x%04X\t%s\t%s\n", e.Code, e.Label, e.Category)
		}
	})
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}
