package statuses

const (
	StatusWaitOpponent = "waiting_for_opponent"
	StatusInProgress   = "in_progress"
	StatusFinished     = "finished"
)
