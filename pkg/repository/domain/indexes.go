package domain

import (
	"github.com/kaminari-anilist/kaminari/pkg/model"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionSpec names a collection and the indexes provisioned for it.
type CollectionSpec struct {
	Name    string
	Indexes []mongo.IndexModel
}

// Collections lists every collection kaminari writes to.
func Collections() []CollectionSpec {
	return []CollectionSpec{
		{
			Name:    repository.CollectionName[model.User](),
			Indexes: []mongo.IndexModel{unique("UserName_unique", UserName.Name())},
		},
		{
			Name:    repository.CollectionName[model.UserAnimeProfile](),
			Indexes: []mongo.IndexModel{unique("user_id_unique", ProfileUserID.Name())},
		},
		{
			Name: repository.CollectionName[model.UserAnime](),
			Indexes: []mongo.IndexModel{
				unique("user_series_unique", AnimeUserID.Name(), AnimeSeriesID.Name()),
			},
		},
		{
			Name: repository.CollectionName[model.TogetherRoom](),
			Indexes: []mongo.IndexModel{
				unique("RoomConnectionString_unique", RoomConnection.Name()),
				{
					Keys:    bson.D{{Key: RoomCreated.Name(), Value: 1}},
					Options: options.Index().SetName("CreateDate_1"),
				},
			},
		},
	}
}

func unique(name string, fields ...string) mongo.IndexModel {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}
