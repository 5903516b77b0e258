package api

import (
	"encoding/json"
	"fmt"
	"net/url"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// LibraryItemType is the discriminant of LibraryItem.
type LibraryItemType string

const (
	LibraryFeed       LibraryItemType = "feed"
	LibraryCollection LibraryItemType = "collection"
	LibraryFolder     LibraryItemType = "folder"
)

// LibraryItem is one node of the navigation tree. Exactly the member named
// by Type is set.
type LibraryItem struct {
	Type       LibraryItemType
	Feed       *Feed
	Collection *Collection
	Folder     *Folder
}

// FeedItem, CollectionItem and FolderItem build tagged items.
func FeedItem(f Feed) LibraryItem             { return LibraryItem{Type: LibraryFeed, Feed: &f} }
func CollectionItem(c Collection) LibraryItem { return LibraryItem{Type: LibraryCollection, Collection: &c} }
func FolderItem(f Folder) LibraryItem         { return LibraryItem{Type: LibraryFolder, Folder: &f} }

// RecordID returns the id of the wrapped record.
func (i LibraryItem) RecordID() string {
	switch i.Type {
	case LibraryFeed:
		if i.Feed != nil {
			return i.Feed.ID
		}
	case LibraryCollection:
		if i.Collection != nil {
			return i.Collection.ID
		}
	case LibraryFolder:
		if i.Folder != nil {
			return i.Folder.ID
		}
	}
	return ""
}

// Title returns the display title of the wrapped record.
func (i LibraryItem) Title() string {
	switch {
	case i.Type == LibraryFeed && i.Feed != nil:
		return i.Feed.Title
	case i.Type == LibraryCollection && i.Collection != nil:
		return i.Collection.Title
	case i.Type == LibraryFolder && i.Folder != nil:
		return i.Folder.Title
	}
	return ""
}

func (i LibraryItem) Validate(path *field.Path) field.ErrorList {
	set := 0
	for _, present := range []bool{i.Feed != nil, i.Collection != nil, i.Folder != nil} {
		if present {
			set++
		}
	}
	data := path.Child("data")
	switch {
	case i.Type == LibraryFeed && i.Feed != nil && set == 1:
		return i.Feed.Validate(data)
	case i.Type == LibraryCollection && i.Collection != nil && set == 1:
		return i.Collection.Validate(data)
	case i.Type == LibraryFolder && i.Folder != nil && set == 1:
		return i.Folder.Validate(data)
	case i.Type != LibraryFeed && i.Type != LibraryCollection && i.Type != LibraryFolder:
		return field.ErrorList{field.NotSupported(path.Child("type"), i.Type,
			[]LibraryItemType{LibraryFeed, LibraryCollection, LibraryFolder})}
	}
	return field.ErrorList{field.Invalid(data, nil, fmt.Sprintf("must hold exactly one %s", i.Type))}
}

type libraryItemWire struct {
	Type LibraryItemType `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (i LibraryItem) MarshalJSON() ([]byte, error) {
	var data any
	switch i.Type {
	case LibraryFeed:
		data = i.Feed
	case LibraryCollection:
		data = i.Collection
	case LibraryFolder:
		data = i.Folder
	default:
		return nil, fmt.Errorf("library item: unknown type %q", i.Type)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(libraryItemWire{Type: i.Type, Data: raw})
}

// UnmarshalJSON dispatches on "type". Unknown tags decode to an item that
// fails validation rather than a decode error, so the report names the field.
func (i *LibraryItem) UnmarshalJSON(data []byte) error {
	var wire libraryItemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*i = LibraryItem{Type: wire.Type}
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		return nil
	}
	switch wire.Type {
	case LibraryFeed:
		i.Feed = new(Feed)
		return json.Unmarshal(wire.Data, i.Feed)
	case LibraryCollection:
		i.Collection = new(Collection)
		return json.Unmarshal(wire.Data, i.Collection)
	case LibraryFolder:
		i.Folder = new(Folder)
		return json.Unmarshal(wire.Data, i.Folder)
	}
	return nil
}

// LibraryListQuery scopes a library listing to one folder.
type LibraryListQuery struct {
	FolderID string
}

func (q LibraryListQuery) Validate(path *field.Path) field.ErrorList {
	if q.FolderID == "" {
		return nil
	}
	return ValidateID(q.FolderID, path.Child("folderId"))
}

func (q LibraryListQuery) Values() url.Values {
	v := url.Values{}
	if q.FolderID != "" {
		v.Set("folderId", q.FolderID)
	}
	return v
}
