package httpapi

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/session"
)

// ErrInvalidCommand is returned for a message that is not a command object.
var ErrInvalidCommand = errors.New("invalid command message")

// DecodeCommand reads a client command such as
//
//	{"cmd":"buy","size":2}
//	{"cmd":"seek","pct":0.5}
//	{"cmd":"update_order_config","config":{"sl_points":12,"trail_mode":"2-step"}}
//
// Unknown command names pass through; Session.Execute rejects them.
func DecodeCommand(msg []byte) (session.Command, error) {
	if !gjson.ValidBytes(msg) {
		return session.Command{}, fmt.Errorf("%w: not json", ErrInvalidCommand)
	}
	root := gjson.ParseBytes(msg)
	if !root.IsObject() {
		return session.Command{}, fmt.Errorf("%w: not an object", ErrInvalidCommand)
	}
	name := root.Get("cmd")
	if name.Type != gjson.String || name.Str == "" {
		return session.Command{}, fmt.Errorf("%w: missing cmd", ErrInvalidCommand)
	}

	cmd := session.Command{
		Name:      name.Str,
		Size:      1,
		Count:     int(root.Get("n").Int()),
		Pct:       root.Get("pct").Float(),
		Speed:     int(root.Get("speed").Int()),
		Timeframe: root.Get("timeframe").String(),
	}
	if size := root.Get("size"); size.Exists() {
		cmd.Size = int(size.Int())
	}
	if cfg := root.Get("config"); cfg.IsObject() {
		cmd.Config = decodeOrderConfigPatch(cfg)
	}
	if inds := root.Get("indicators"); inds.IsArray() {
		cmd.Indicators = decodeIndicators(inds)
	}
	return cmd, nil
}

func decodeOrderConfigPatch(cfg gjson.Result) domain.OrderConfigPatch {
	var p domain.OrderConfigPatch
	if v := cfg.Get("sl_enabled"); isBool(v) {
		b := v.Bool()
		p.SLEnabled = &b
	}
	if v := cfg.Get("tp_enabled"); isBool(v) {
		b := v.Bool()
		p.TPEnabled = &b
	}
	if v := cfg.Get("trail_enabled"); isBool(v) {
		b := v.Bool()
		p.TrailEnabled = &b
	}
	if v := cfg.Get("sl_points"); v.Type == gjson.Number {
		f := v.Float()
		p.SLPoints = &f
	}
	if v := cfg.Get("tp_points"); v.Type == gjson.Number {
		f := v.Float()
		p.TPPoints = &f
	}
	if v := cfg.Get("trail_points"); v.Type == gjson.Number {
		f := v.Float()
		p.TrailPoints = &f
	}
	if v := cfg.Get("trail_mode"); v.Type == gjson.String {
		m := domain.TrailMode(v.Str)
		p.TrailMode = &m
	}
	if v := cfg.Get("trail_steps"); v.IsArray() {
		p.TrailSteps = []domain.TrailStep{}
		v.ForEach(func(_, step gjson.Result) bool {
			p.TrailSteps = append(p.TrailSteps, domain.TrailStep{
				Trigger: step.Get("trigger").Float(),
				SLMove:  step.Get("sl_move").Float(),
			})
			return true
		})
	}
	return p
}

func decodeIndicators(arr gjson.Result) []domain.IndicatorConfig {
	out := []domain.IndicatorConfig{}
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, domain.IndicatorConfig{
			ID:     v.Get("id").String(),
			Type:   domain.IndicatorType(v.Get("type").String()),
			Period: int(v.Get("period").Int()),
			Output: v.Get("output").String(),
		})
		return true
	})
	return out
}

func isBool(v gjson.Result) bool {
	return v.Type == gjson.True || v.Type == gjson.False
}
