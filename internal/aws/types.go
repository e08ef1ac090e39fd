package aws

const (
	TypeAurora = "AURORA"
	TypeRDS    = "RDS"
)

// Member is one instance inside an Aurora cluster.
type Member struct {
	InstanceID string `json:"instance_id"`
	IsWriter   bool   `json:"is_writer"`
}

// Database describes one discovered Aurora cluster or RDS instance.
type Database struct {
	Identifier       string   `json:"identifier"`
	Type             string   `json:"type"`
	Engine           string   `json:"engine"`
	Version          string   `json:"version"`
	Endpoint         string   `json:"endpoint"`
	ReaderEndpoint   string   `json:"reader_endpoint,omitempty"`
	Port             int      `json:"port"`
	Status           string   `json:"status"`
	InstanceClass    string   `json:"instance_class,omitempty"`
	MultiAZ          bool     `json:"multi_az"`
	StorageEncrypted bool     `json:"storage_encrypted"`
	ARN              string   `json:"arn"`
	Members          []Member `json:"members,omitempty"`
}

// Credentials holds everything needed to open a MySQL connection.
type Credentials struct {
	User     string
	Password string
	Host     string
	Port     int
}
