package tasks

// TaskSchedulerInterface defines the interface for task scheduling
// operations. The main application uses it to manage background
// processing; the poll task uses it to hand the notification fan-out off
// to another worker so the next cycle's fetch can overlap it.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
