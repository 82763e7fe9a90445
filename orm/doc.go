/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
* Each bucket contains only one type of object.
* It has a primary index (which may be composite),
and may possess secondary indexes (1:1 or 1:N).
* Easy queries for one and iteration.

Objects are protobuf messages. They are serialized with gogo/protobuf, so a
model only needs struct tags and the proto.Message methods.
*/
package orm
