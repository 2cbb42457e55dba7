package store

import (
	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/repositories/collections"
	"github.com/dmitrijs2005/lifelist/internal/repositories/items"
	"github.com/dmitrijs2005/lifelist/internal/repositories/metadata"
	"github.com/dmitrijs2005/lifelist/internal/repositories/photos"
	"github.com/dmitrijs2005/lifelist/internal/repositories/rules"
	"github.com/dmitrijs2005/lifelist/internal/repositories/syncqueue"
)

// Repository constructors over an arbitrary querier, so the same code runs
// against the pool for reads and against a transaction for mutations.

func collectionsRepo(q dbx.DBTX) collections.Repository { return collections.NewSQLiteRepository(q) }
func itemsRepo(q dbx.DBTX) items.Repository             { return items.NewSQLiteRepository(q) }
func rulesRepo(q dbx.DBTX) rules.Repository             { return rules.NewSQLiteRepository(q) }
func photosRepo(q dbx.DBTX) photos.Repository           { return photos.NewSQLiteRepository(q) }
func queueRepo(q dbx.DBTX) syncqueue.Repository         { return syncqueue.NewSQLiteRepository(q) }
func metadataRepo(q dbx.DBTX) metadata.Repository       { return metadata.NewSQLiteRepository(q) }
