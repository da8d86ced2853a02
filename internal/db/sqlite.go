package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rflyhigh/pinnedthoughts/internal/models"
)

var (
	ErrNotFound = errors.New("chat not found")
	ErrConflict = errors.New("chat already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS chats (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    model TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    chat_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);`

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) CreateChat(id, title, model string, now time.Time) (*models.Chat, error) {
	query := `
        INSERT INTO chats (id, title, model, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`

	if _, err := db.db.Exec(query, id, title, model, now, now); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrConflict
		}
		return nil, err
	}

	return &models.Chat{
		ID:        id,
		Title:     title,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (db *Database) GetChat(id string) (*models.Chat, error) {
	query := `
        SELECT id, title, model, created_at, updated_at
        FROM chats
        WHERE id = ?`

	chat := &models.Chat{}
	err := db.db.QueryRow(query, id).Scan(&chat.ID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (db *Database) TouchChat(id string, now time.Time) error {
	result, err := db.db.Exec("UPDATE chats SET updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (db *Database) RenameChat(id, title string) error {
	result, err := db.db.Exec("UPDATE chats SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// DeleteChat removes a chat together with all of its messages in one
// transaction.
func (db *Database) DeleteChat(id string) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE chat_id = ?", id); err != nil {
		return err
	}

	result, err := tx.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

// ListChats returns all chats, most recently updated first, each annotated
// with its message count.
func (db *Database) ListChats() ([]models.Chat, error) {
	query := `
        SELECT c.id, c.title, c.model, c.created_at, c.updated_at, COUNT(m.id) AS message_count
        FROM chats c
        LEFT JOIN messages m ON c.id = m.chat_id
        GROUP BY c.id
        ORDER BY c.updated_at DESC`

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		var chat models.Chat
		err := rows.Scan(&chat.ID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt, &chat.MessageCount)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (db *Database) AppendMessage(chatID, role, content string, now time.Time) (*models.Message, error) {
	if err := db.chatExists(chatID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: now,
	}

	query := `
        INSERT INTO messages (id, chat_id, role, content, timestamp)
        VALUES (?, ?, ?, ?, ?)`

	if _, err := db.db.Exec(query, msg.ID, msg.ChatID, msg.Role, msg.Content, msg.Timestamp); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns a chat's messages in timestamp order.
func (db *Database) ListMessages(chatID string) ([]models.Message, error) {
	if err := db.chatExists(chatID); err != nil {
		return nil, err
	}

	query := `
        SELECT id, chat_id, role, content, timestamp
        FROM messages
        WHERE chat_id = ?
        ORDER BY timestamp`

	rows, err := db.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Role, &msg.Content, &msg.Timestamp)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *Database) chatExists(id string) error {
	var exists int
	err := db.db.QueryRow("SELECT 1 FROM chats WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
