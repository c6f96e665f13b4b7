package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func TestBlockRequest_SerializedShape(t *testing.T) {
	req := BlockRequest{
		ID:          3,
		Description: "spam site",
		Email:       "a@b.com",
		IP:          "192.0.2.1",
		Outcome:     OutcomeAccepted,
		WebsiteID:   9,
		Website:     Website{ID: 9, Domain: "http://bad.example"},
	}

	b, err := json.Marshal(req)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Len(t, out, 6)
	assert.Equal(t, float64(3), out["id"])
	assert.Equal(t, true, out["outcome"])
	assert.Equal(t, map[string]interface{}{"domain": "http://bad.example"}, out["website"])
}

func TestBlockRequest_OutcomeLabel(t *testing.T) {
	assert.Equal(t, "accepted", (&BlockRequest{Outcome: OutcomeAccepted}).OutcomeLabel())
	assert.Equal(t, "not accepted", (&BlockRequest{Outcome: OutcomeRejected}).OutcomeLabel())
}

func TestWebsite_DeleteCascadesToRequests(t *testing.T) {
	db := setupTestDB(t)

	site := Website{Domain: "http://bad.example"}
	require.NoError(t, db.Create(&site).Error)
	req := BlockRequest{Description: "d", Email: "a@b.com", IP: "192.0.2.1", Outcome: OutcomeUndecided, WebsiteID: site.ID}
	require.NoError(t, db.Omit("Website").Create(&req).Error)

	require.NoError(t, db.Delete(&site).Error)

	var count int64
	db.Model(&BlockRequest{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestWebsite_DomainIsUnique(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&Website{Domain: "http://dup.example"}).Error)
	assert.Error(t, db.Create(&Website{Domain: "http://dup.example"}).Error)
}
