package enums

// CurationEventType names events emitted when curated content changes.
type CurationEventType string

const (
	EventHomeContentListReplaced CurationEventType = "home_content.list_replaced"
	EventCollectionCreated       CurationEventType = "collection.created"
	EventCollectionUpdated       CurationEventType = "collection.updated"
	EventCollectionDeleted       CurationEventType = "collection.deleted"
	EventOfferCreated            CurationEventType = "offer.created"
	EventOfferUpdated            CurationEventType = "offer.updated"
	EventOfferDeleted            CurationEventType = "offer.deleted"
)

func (e CurationEventType) String() string {
	return string(e)
}

// CurationAggregateType names the entity an event is about.
type CurationAggregateType string

const (
	AggregateHomeContent CurationAggregateType = "home_content"
	AggregateCollection  CurationAggregateType = "collection"
	AggregateOffer       CurationAggregateType = "offer"
)

func (a CurationAggregateType) String() string {
	return string(a)
}
