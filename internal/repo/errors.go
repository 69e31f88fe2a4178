package repo

import "errors"

// Общие ошибки хранилищ сводок. Оба бэкенда (PostgreSQL и файловый
// каталог) возвращают одни и те же sentinel-ошибки.
var (
	// ErrNotFound — сводка с таким ключом или run ID не сохранена.
	ErrNotFound = errors.New("summary not found")

	// ErrAlreadyExists — сводка с таким ключом уже сохранена.
	ErrAlreadyExists = errors.New("summary already exists")
)
