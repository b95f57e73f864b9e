package sql

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/messagefeed/feed/app/sdk/feed"
	ldgr "github.com/ardanlabs/messagefeed/feed/app/sdk/ledger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dbDirName  = "db"
	dbFileName = "feed.db"
)

type DB struct {
	db *gorm.DB
}

type myAccount struct {
	Singleton bool   `gorm:"primaryKey;default:true"`
	ID        string `gorm:"column:id"`
	Name      string `gorm:"column:name"`
}

type message struct {
	Position uint64 `gorm:"primaryKey;autoIncrement;column:position"`
	Pointer  string `gorm:"uniqueIndex;column:pointer"`
	FromID   string `gorm:"column:from_id"`
	Name     string `gorm:"column:name"`
	Text     string `gorm:"column:text"`
}

func NewDB(filePath string, myAccountID ldgr.Pointer, myName string) (*DB, error) {
	dbFileDir := filepath.Join(filePath, dbDirName)
	os.MkdirAll(dbFileDir, os.ModePerm)

	fileName := filepath.Join(dbFileDir, dbFileName)
	db, err := gorm.Open(sqlite.Open(fileName), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if err := db.AutoMigrate(&message{}, myAccount{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	if err := saveMyAccount(db, myAccountID, myName); err != nil {
		return nil, fmt.Errorf("save my account: %w", err)
	}

	return &DB{db: db}, nil
}

func saveMyAccount(db *gorm.DB, myAccountID ldgr.Pointer, myName string) error {
	var myAcc myAccount
	db.First(&myAcc)

	if myAcc.ID == "" {
		res := db.Save(&myAccount{
			Singleton: true,
			ID:        myAccountID.String(),
			Name:      myName,
		})
		if res.Error != nil {
			return fmt.Errorf("create my account: %w", res.Error)
		}
	}

	return nil
}

func (db *DB) MyAccount() (id string, name string) {
	var myAccount myAccount
	db.db.First(&myAccount)
	return myAccount.ID, myAccount.Name
}

// Messages returns the persisted view in chain order.
func (db *DB) Messages() ([]feed.Message, error) {
	var rows []message
	if err := db.db.Order("position asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	msgs := make([]feed.Message, len(rows))
	for i, row := range rows {
		ptr, err := ldgr.ParsePointer(row.Pointer)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", row.Position, err)
		}

		from, err := ldgr.ParsePointer(row.FromID)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", row.Position, err)
		}

		msgs[i] = feed.Message{
			Pointer: ptr,
			From:    from,
			Name:    row.Name,
			Text:    row.Text,
		}
	}

	return msgs, nil
}

func (db *DB) InsertMessage(msg feed.Message) error {
	res := db.db.Create(&message{
		Pointer: msg.Pointer.String(),
		FromID:  msg.From.String(),
		Name:    msg.Name,
		Text:    msg.Text,
	})

	if res.Error != nil {
		return fmt.Errorf("insert message: %w", res.Error)
	}

	return nil
}

func (db *DB) CleanTables() error {
	if err := db.db.Migrator().DropTable(&message{}); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	if err := db.db.AutoMigrate(&message{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}
