// Package schema declares the cataloged entity types as explicit descriptors.
//
// Two families exist, each with a base entity and concrete subtypes stored in
// joined tables:
//
//	measurement (measurements)  -> cwepr, trepr, pulse_epr
//	molecule    (molecules)     -> single, rp, tdp, ttp
//
// Every field is described by a Field (name, type tag, constraints). The
// shape package derives filter, ordering and update shapes from these
// descriptors, the store maps them onto SQL columns, and the catalog
// validates input against them. Nothing here uses reflection.
package schema
