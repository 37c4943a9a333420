package signal

import "github.com/dkeye/Parley/internal/protocol"

func (ctl *SignalWSController) handlePing(s *session) {
	ctl.sendJSON(s, protocol.TypePong, nil)
}
