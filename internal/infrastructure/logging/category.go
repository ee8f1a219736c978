package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	Room            Category = "Room"
	Sweep           Category = "Sweep"
	Relay           Category = "Relay"
	Mongo           Category = "Mongo"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Room
	Create      SubCategory = "Create"
	Delete      SubCategory = "Delete"
	Transition  SubCategory = "Transition"
	Audit       SubCategory = "Audit"
	Publish     SubCategory = "Publish"
	Consume     SubCategory = "Consume"
	CheckSecret SubCategory = "CheckSecret"

	// Relay
	Connect    SubCategory = "Connect"
	Disconnect SubCategory = "Disconnect"
	Join       SubCategory = "Join"
	Forward    SubCategory = "Forward"
	Drop       SubCategory = "Drop"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
	RoomID       ExtraKey = "RoomId"
	ClientID     ExtraKey = "ClientId"
	UID          ExtraKey = "Uid"
	EventType    ExtraKey = "EventType"
)
