package database

type NewsRepository interface {
	GetAll() ([]NewsItem, error)
	GetLinks() (map[string]struct{}, error)
	GetCount() (int, error)

	// ReplaceAll atomically swaps the stored snapshot for the given set.
	ReplaceAll(items []NewsItem) error
}

type SubscriberRepository interface {
	GetByEmail(email string) (*Subscriber, error)
	GetActive() ([]Subscriber, error)
	GetAll() ([]Subscriber, error)
	GetCount() (int, error)

	Insert(email, state string) (*Subscriber, error)
	Delete(email string) error
}
