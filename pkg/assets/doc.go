/*
Package assets resolves authored content for a session.

A Catalog caches the descriptors of one ports.AssetSource and is shared by every
session. A Manager binds the catalog to the locale and vars of one session: it reads
data in the active locale with a fallback to the default locale, checks descriptor
types, decodes states and substitutes {var=key} placeholders in texts.
*/
package assets
