package session

import (
	"fmt"

	"go.uber.org/zap"

	"tick-replay-lab/internal/domain"
	"tick-replay-lab/internal/observability"
)

// Command names accepted by Execute.
const (
	CmdPlay              = "play"
	CmdPause             = "pause"
	CmdTogglePlay        = "toggle_play"
	CmdStep              = "step"
	CmdStepForward       = "step_forward"
	CmdStepBack          = "step_back"
	CmdSeek              = "seek"
	CmdSetSpeed          = "set_speed"
	CmdSpeedUp           = "speed_up"
	CmdSpeedDown         = "speed_down"
	CmdSetTimeframe      = "set_timeframe"
	CmdReset             = "reset"
	CmdBuy               = "buy"
	CmdSell              = "sell"
	CmdFlatten           = "flatten"
	CmdUpdateOrderConfig = "update_order_config"
	CmdSetIndicators     = "set_indicators"
)

// Command is a decoded client request. Only the fields its Name uses are read.
type Command struct {
	Name       string
	Size       int     // buy, sell
	Count      int     // step_forward
	Pct        float64 // seek
	Speed      int     // set_speed
	Timeframe  string  // set_timeframe
	Config     domain.OrderConfigPatch
	Indicators []domain.IndicatorConfig
}

// Execute dispatches cmd to the matching Session method.
func (s *Session) Execute(cmd Command) error {
	err := s.execute(cmd)
	observability.RecordCommand(cmd.Name, err)
	if err != nil {
		s.log.Warn("command failed", zap.String("command", cmd.Name), zap.Error(err))
	} else {
		s.log.Debug("command", zap.String("command", cmd.Name))
	}
	return err
}

func (s *Session) execute(cmd Command) error {
	switch cmd.Name {
	case CmdPlay:
		s.Play()
	case CmdPause:
		s.Pause()
	case CmdTogglePlay:
		s.TogglePlay()
	case CmdStep:
		s.Step()
	case CmdStepForward:
		s.StepForward(cmd.Count)
	case CmdStepBack:
		s.StepBack()
	case CmdSeek:
		s.SeekToProgress(cmd.Pct)
	case CmdSetSpeed:
		s.SetSpeed(cmd.Speed)
	case CmdSpeedUp:
		s.SpeedUp()
	case CmdSpeedDown:
		s.SpeedDown()
	case CmdSetTimeframe:
		return s.SetTimeframe(cmd.Timeframe)
	case CmdReset:
		s.Reset()
	case CmdBuy:
		return s.Buy(cmd.Size)
	case CmdSell:
		return s.Sell(cmd.Size)
	case CmdFlatten:
		s.Flatten()
	case CmdUpdateOrderConfig:
		s.UpdateOrderConfig(cmd.Config)
	case CmdSetIndicators:
		return s.SetIndicators(cmd.Indicators)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	return nil
}
