package config

type WorkerKeyStruct struct {
	PersistIntegrityQueue string
	PersistResultsQueue   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistIntegrityQueue: "persist_integrity_queue",
	PersistResultsQueue:   "persist_results_queue",
}
