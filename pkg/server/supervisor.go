package server

import (
	"time"

	"github.com/vctt94/hiddenhand/pkg/poker"
	"github.com/vctt94/hiddenhand/pkg/statemachine"
)

// supervisor watches one table and fires the permissionless liveness
// operations when their deadlines pass: forced actions, reveal mucks
// and inactive-table closure. It is a convenience only; external
// callers can invoke the same operations through the API.
type supervisor struct {
	srv     *Server
	tableID string
}

// supervisorInterval is how often a supervisor rechecks its table.
const supervisorInterval = 5 * time.Second

// StartSupervisor launches the liveness loop for a table. The loop
// terminates when the table closes or the server stops.
func (s *Server) StartSupervisor(tableID string) {
	sup := &supervisor{srv: s, tableID: tableID}
	sm := statemachine.NewStateMachine(sup, watchWaiting)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(supervisorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				if !sm.Step() {
					return
				}
			}
		}
	}()
}

// status reads the watched table's current status.
func (sup *supervisor) status() (poker.TableStatus, bool) {
	tbl, err := sup.srv.GetTable(sup.tableID)
	if err != nil {
		return 0, false
	}
	return tbl.Status, true
}

// watchWaiting supervises a table between hands. Its only liveness
// concern is closing the table after prolonged inactivity.
func watchWaiting(sup *supervisor) statemachine.StateFn[supervisor] {
	status, ok := sup.status()
	if !ok {
		return nil
	}
	switch status {
	case poker.TablePlaying:
		return watchPlaying
	case poker.Closed:
		return watchClosed
	}

	if err := sup.srv.CloseInactive(sup.tableID); err == nil {
		return watchClosed
	}
	return watchWaiting
}

// watchPlaying supervises a hand in progress: it times out stalled
// actions and, at showdown, mucks seats that never reveal.
func watchPlaying(sup *supervisor) statemachine.StateFn[supervisor] {
	tbl, err := sup.srv.GetTable(sup.tableID)
	if err != nil {
		return nil
	}
	switch tbl.Status {
	case poker.Waiting:
		return watchWaiting
	case poker.Closed:
		return watchClosed
	}

	if tbl.Hand == nil {
		return watchPlaying
	}
	switch {
	case tbl.Hand.Phase == poker.Showdown:
		// Errors just mean a deadline has not passed yet.
		for i := uint8(0); i < tbl.Config.MaxPlayers; i++ {
			if tbl.Seats[i] != nil && !tbl.Seats[i].CardsRevealed {
				_ = sup.srv.TimeoutReveal(sup.tableID, i)
			}
		}
		// Once everything needed is on the table the hand can settle.
		_, _ = sup.srv.Showdown(sup.tableID, "")
	default:
		_, _ = sup.srv.TimeoutAction(sup.tableID)
	}
	return watchPlaying
}

// watchClosed terminates the loop.
func watchClosed(sup *supervisor) statemachine.StateFn[supervisor] {
	sup.srv.log.Debugf("supervisor for table %s exiting", sup.tableID)
	return nil
}
