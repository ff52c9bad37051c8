package repository

import "github.com/iliyamo/seating-chart/internal/store"

// Sort key layout inside an owner partition:
//
//	chart#<chart>                      chart record
//	furniture#<item>                   furniture record
//	person#<person>                    roster entry
//	chart-furniture#<chart>#<item>     furniture of a chart
//
// The assignment registry adds its own paths next to these.
const (
	chartPrefix          = "chart" + store.Separator
	furniturePrefix      = "furniture" + store.Separator
	personPrefix         = "person" + store.Separator
	chartFurniturePrefix = "chart-furniture" + store.Separator
)

func chartKey(ownerID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: chartPrefix + id}
}

func furnitureKey(ownerID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: furniturePrefix + id}
}

func chartFurnitureKey(ownerID, chartID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: chartFurniturePrefix + store.Join(chartID, id)}
}

func personKey(ownerID, id string) store.Key {
	return store.Key{Partition: store.OwnerPartition(ownerID), Sort: personPrefix + id}
}
