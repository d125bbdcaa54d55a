// Package demo is a small bookstore graph used by the command line tool to
// show the mapping end to end.
package demo

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/typegraph/internal/mapping"
	"github.com/hanpama/typegraph/internal/optional"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

type Genre string

const (
	GenreFiction Genre = "fiction"
	GenreHistory Genre = "history"
	GenrePoetry  Genre = "poetry"
)

func (Genre) GraphQLTag() reflect.StructTag { return `kind:"enum" desc:"Shelf section of a book"` }
func (Genre) Values() []Genre               { return []Genre{GenreFiction, GenreHistory, GenrePoetry} }

// Node is anything that can be refetched by its global id.
type Node interface{ NodeID() typeinfo.ID }

type Author struct {
	typeinfo.Object `desc:"Someone who wrote books in the store"`
	ID              uuid.UUID `graphql:"id"`
	Name            string    `graphql:"name"`
	Born            int       `graphql:"born,nullable"`
}

type Book struct {
	typeinfo.Object `desc:"A book in the store"`
	ID              typeinfo.ID `graphql:"id"`
	Title           string      `graphql:"title"`
	Genre           Genre       `graphql:"genre"`
	Pages           int         `graphql:"pages"`
	Added           time.Time   `graphql:"added"`
	Tags            []string    `graphql:"tags"`
	Shelf           string      `graphql:"shelf" deprecated:"use genre"`
	Author          AuthorRef   `graphql:"author"`
}

func (a Author) NodeID() typeinfo.ID { return typeinfo.ID("Author:" + a.ID.String()) }
func (b Book) NodeID() typeinfo.ID   { return typeinfo.ID("Book:" + string(b.ID)) }

// AuthorRef points at an author of the store. Fields of this type are
// resolved to the author through AuthorOf.
type AuthorRef string

// AuthorOf looks up the author ref points at.
func AuthorOf(ref AuthorRef, store *Store) (*Author, error) {
	id, err := uuid.Parse(string(ref))
	if err != nil {
		return nil, fmt.Errorf("author ref %q: %w", ref, err)
	}
	store.mu.RLock()
	defer store.mu.RUnlock()
	a, ok := store.authors[id]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownAuthor, id)
	}
	return &a, nil
}

// SearchResult is anything a search can match.
type SearchResult interface{ isSearchResult() }

func (Book) isSearchResult()   {}
func (Author) isSearchResult() {}

type NewBook struct {
	typeinfo.Input `desc:"Fields of a book to add"`
	Title          string    `graphql:"title" validate:"required"`
	Genre          Genre     `graphql:"genre"`
	Pages          int       `graphql:"pages" validate:"gte=1"`
	Author         uuid.UUID `graphql:"author"`
	Tags           []string  `graphql:"tags" validate:"dive,required"`
}

var ErrUnknownAuthor = errors.New("unknown author")

// Store keeps the books and authors in memory.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	seq     int
	authors map[uuid.UUID]Author
	books   []Book
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now, authors: make(map[uuid.UUID]Author)}
}

func (s *Store) AddAuthor(name string, born int) Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := Author{ID: uuid.New(), Name: name, Born: born}
	s.authors[a.ID] = a
	return a
}

func (s *Store) AddBook(in NewBook) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authors[in.Author]; !ok {
		return Book{}, fmt.Errorf("%w %s", ErrUnknownAuthor, in.Author)
	}
	s.seq++
	b := Book{
		ID:       typeinfo.ID(fmt.Sprintf("book-%d", s.seq)),
		Title:    in.Title,
		Genre:    in.Genre,
		Pages:    in.Pages,
		Added:    s.now().UTC(),
		Tags:     in.Tags,
		Shelf:    string(in.Genre),
		Author:   AuthorRef(in.Author.String()),
	}
	s.books = append(s.books, b)
	return b, nil
}

// Seeded returns a store holding a few classics.
func Seeded(now func() time.Time) *Store {
	s := NewStore(now)
	austen := s.AddAuthor("Jane Austen", 1775)
	gibbon := s.AddAuthor("Edward Gibbon", 1737)
	seed := []NewBook{
		{Title: "Emma", Genre: GenreFiction, Pages: 474, Author: austen.ID, Tags: []string{"classic"}},
		{Title: "Persuasion", Genre: GenreFiction, Pages: 249, Author: austen.ID},
		{Title: "The Decline and Fall of the Roman Empire", Genre: GenreHistory, Pages: 3589, Author: gibbon.ID},
	}
	for _, in := range seed {
		if _, err := s.AddBook(in); err != nil {
			panic(err)
		}
	}
	return s
}

type Query struct{ store *Store }

// Books lists books in the order they were added. An omitted or null
// first lists them all.
func (q Query) Books(genre *Genre, first optional.Value[int]) ([]Book, error) {
	limit, limited := first.Get()
	if limited && limit < 0 {
		return nil, fmt.Errorf("first must not be negative, got %d", limit)
	}
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	var out []Book
	for _, b := range q.store.books {
		if limited && len(out) == limit {
			break
		}
		if genre == nil || b.Genre == *genre {
			out = append(out, b)
		}
	}
	return out, nil
}

func (q Query) Book(id typeinfo.ID) *Book {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	for i := range q.store.books {
		if q.store.books[i].ID == id {
			b := q.store.books[i]
			return &b
		}
	}
	return nil
}

func (q Query) Authors() []Author {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	out := make([]Author, 0, len(q.store.authors))
	for _, a := range q.store.authors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search matches titles and author names case-insensitively.
func (q Query) Search(term string) []SearchResult {
	term = strings.ToLower(term)
	var out []SearchResult
	for _, a := range q.Authors() {
		if strings.Contains(strings.ToLower(a.Name), term) {
			out = append(out, a)
		}
	}
	books, _ := q.Books(nil, optional.Value[int]{})
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), term) {
			out = append(out, b)
		}
	}
	return out
}

// Node resolves ids of the form "Book:<id>" and "Author:<uuid>".
func (q Query) Node(id typeinfo.ID) (Node, error) {
	kind, key, ok := strings.Cut(string(id), ":")
	if !ok {
		return nil, fmt.Errorf("malformed node id %q", id)
	}
	switch kind {
	case "Book":
		if b := q.Book(typeinfo.ID(key)); b != nil {
			return *b, nil
		}
	case "Author":
		if a, err := AuthorOf(AuthorRef(key), q.store); err == nil {
			return *a, nil
		}
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
	return nil, nil
}

func (Query) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{
		"Books":   `graphql:"books" args:"genre,first" desc:"Books of the store, optionally of one genre"`,
		"Node":    `graphql:"node" args:"id"`,
		"Book":    `graphql:"book" args:"id"`,
		"Authors": `graphql:"authors"`,
		"Search":  `graphql:"search" args:"term"`,
	}
}

type Mutation struct{ store *Store }

func (m Mutation) AddBook(input NewBook) (*Book, error) {
	b, err := m.store.AddBook(input)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (Mutation) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"AddBook": `graphql:"addBook" args:"input"`}
}

// authorBooks adds the books of an author.
type authorBooks struct{ store *Store }

func (x authorBooks) Books(a Author) []Book {
	ref := AuthorRef(a.ID.String())
	x.store.mu.RLock()
	defer x.store.mu.RUnlock()
	var out []Book
	for _, b := range x.store.books {
		if b.Author == ref {
			out = append(out, b)
		}
	}
	return out
}

func (authorBooks) GraphQLMethods() map[string]reflect.StructTag {
	return map[string]reflect.StructTag{"Books": `graphql:"books,async" args:"@source"`}
}

// Universe declares the abstract types of the bookstore and the factory
// resolving author refs.
func Universe() *typeinfo.Universe {
	return typeinfo.NewUniverse().
		Declare(typeinfo.TypeOf[SearchResult](), typeinfo.Declaration{
			Tag: `graphql:"SearchResult" kind:"union" desc:"A book or an author"`,
		}).
		Declare(typeinfo.TypeOf[Node](), typeinfo.Declaration{
			Tag:     `graphql:"Node" kind:"interface" desc:"An object with a global id"`,
			Methods: map[string]reflect.StructTag{"NodeID": `graphql:"nodeId"`},
		}).
		Factory(AuthorOf, "@source")
}

// Build maps the bookstore over store.
func Build(store *Store, opts ...mapping.Option) (*mapping.Built, error) {
	instances := typeinfo.InstanceMap{Values: map[reflect.Type]any{reflect.TypeOf(store): store}}
	opts = append([]mapping.Option{
		mapping.WithDescription("A small bookstore"),
		mapping.WithInstances(instances),
	}, opts...)
	return mapping.New(Universe(), opts...).
		Query(Query{store: store}).
		Mutation(Mutation{store: store}).
		Mixin(authorBooks{store: store}).
		Type(reflect.TypeOf(Book{})).
		Type(reflect.TypeOf(Author{})).
		Build()
}
